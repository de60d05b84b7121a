package errs

// error codes, grouped by concern
const (
	ServerInternalError = 500  // server internal error
	ArgsError           = 1001 // invalid argument (empty/nil required field)
	TokenExpiredError   = 1501 // gateway token missing or expired

	NotMemberError            = 2101 // acting user is not an active member
	DuplicateMemberError      = 2102
	MemberNotFoundError       = 2103
	CouldNotAddMemberError    = 2104 // batch add rejected as a whole
	CouldNotRemoveMemberError = 2105 // batch remove rejected as a whole

	DuplicateMessageError   = 2201
	MessageNotFoundError    = 2202
	MessageLogNotFoundError = 2203
	InvalidDateError        = 2204 // date strictly after today

	ConversationNotFoundError = 2301
)

var (
	ErrInternalServer = NewCodeError(ServerInternalError, "ServerInternalError")
	ErrArgs           = NewCodeError(ArgsError, "ArgsError")
	ErrTokenExpired   = NewCodeError(TokenExpiredError, "TokenExpiredError")

	ErrNotMember            = NewCodeError(NotMemberError, "NotMemberError")
	ErrDuplicateMember      = NewCodeError(DuplicateMemberError, "DuplicateMemberError")
	ErrMemberNotFound       = NewCodeError(MemberNotFoundError, "MemberNotFoundError")
	ErrCouldNotAddMember    = NewCodeError(CouldNotAddMemberError, "CouldNotAddMemberError")
	ErrCouldNotRemoveMember = NewCodeError(CouldNotRemoveMemberError, "CouldNotRemoveMemberError")

	ErrDuplicateMessage   = NewCodeError(DuplicateMessageError, "DuplicateMessageError")
	ErrMessageNotFound    = NewCodeError(MessageNotFoundError, "MessageNotFoundError")
	ErrMessageLogNotFound = NewCodeError(MessageLogNotFoundError, "MessageLogNotFoundError")
	ErrInvalidDate        = NewCodeError(InvalidDateError, "InvalidDateError")

	ErrConversationNotFound = NewCodeError(ConversationNotFoundError, "ConversationNotFoundError")
)

func init() {
	// a whole-batch rejection is still a duplicate/not-found to callers
	// matching on the single-item codes
	_ = DefaultCodeRelation.Add(CouldNotAddMemberError, DuplicateMemberError)
	_ = DefaultCodeRelation.Add(CouldNotRemoveMemberError, MemberNotFoundError)
}
