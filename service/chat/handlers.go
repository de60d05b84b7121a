package chat

import (
	"net/http"
	"strconv"
	"time"

	"CSProject/middleware/security"
	"CSProject/module/conversation/model"
	"CSProject/tools/errs"

	"github.com/gin-gonic/gin"
)

// ---- request/response DTOs ----

type loginReq struct {
	Username string `json:"username" binding:"required"`
}

type createConversationReq struct {
	Name      string   `json:"name"`
	Usernames []string `json:"usernames" binding:"required"`
}

type renameReq struct {
	Name string `json:"name"`
}

type messagesReq struct {
	Messages []model.Message `json:"messages" binding:"required"`
}

type removeMessageReq struct {
	Message model.Message `json:"message" binding:"required"`
}

type membersReq struct {
	Usernames []string `json:"usernames" binding:"required"`
}

// writeError maps the core error taxonomy onto http statuses and
// always returns the CodeError body.
func writeError(c *gin.Context, err error) {
	codeErr := &errs.CodeError{Code: errs.ServerInternalError, Msg: "ServerInternalError", Detail: err.Error()}
	if ce, ok := errs.Unwrap(err).(*errs.CodeError); ok {
		codeErr = ce
	}
	status := http.StatusInternalServerError
	switch codeErr.Code {
	case errs.ArgsError, errs.InvalidDateError:
		status = http.StatusBadRequest
	case errs.TokenExpiredError:
		status = http.StatusUnauthorized
	case errs.NotMemberError:
		status = http.StatusForbidden
	case errs.MemberNotFoundError, errs.MessageNotFoundError,
		errs.MessageLogNotFoundError, errs.ConversationNotFoundError:
		status = http.StatusNotFound
	case errs.DuplicateMemberError, errs.DuplicateMessageError,
		errs.CouldNotAddMemberError, errs.CouldNotRemoveMemberError:
		status = http.StatusConflict
	}
	c.JSON(status, codeErr)
}

func pathNumber(c *gin.Context) (int64, bool) {
	num, err := strconv.ParseInt(c.Param("number"), 10, 64)
	if err != nil || num <= 0 {
		writeError(c, errs.ErrArgs.WrapMsg("bad conversation number", "raw", c.Param("number")))
		return 0, false
	}
	return num, true
}

// HandlerLogin mints a token for the given username. User identity
// management is outside this service; any non-empty username gets a
// token here.
func (s *Server) HandlerLogin(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errs.ErrArgs.WrapMsg("bad login body"))
		return
	}
	expire := time.Duration(s.cfg.Auth.ExpireMin) * time.Minute
	token, err := security.MintToken([]byte(s.cfg.Auth.JwtSecret), req.Username, expire)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "username": req.Username})
}

func (s *Server) HandlerListConversations(c *gin.Context) {
	acting := security.ActingUsername(c)
	c.JSON(http.StatusOK, gin.H{"conversation_numbers": s.reg.NumbersFor(acting)})
}

// HandlerCreateConversation creates a conversation; the creator is
// always part of the initial member list.
func (s *Server) HandlerCreateConversation(c *gin.Context) {
	acting := security.ActingUsername(c)
	var req createConversationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errs.ErrArgs.WrapMsg("bad create body"))
		return
	}
	usernames := req.Usernames
	found := false
	for _, name := range usernames {
		if name == acting {
			found = true
			break
		}
	}
	if !found {
		usernames = append([]string{acting}, usernames...)
	}
	conv, err := s.reg.Create(req.Name, usernames)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation_number": conv.Number()})
}

func (s *Server) HandlerDeleteConversation(c *gin.Context) {
	acting := security.ActingUsername(c)
	num, ok := pathNumber(c)
	if !ok {
		return
	}
	if err := s.reg.Remove(num, acting); err != nil {
		writeError(c, err)
		return
	}
	s.PublishEvent(c.Request.Context(), &model.Event{
		Type: model.EventConversationDeleted, ConversationNumber: num,
	})
	c.JSON(http.StatusOK, gin.H{})
}

func (s *Server) HandlerRename(c *gin.Context) {
	acting := security.ActingUsername(c)
	num, ok := pathNumber(c)
	if !ok {
		return
	}
	var req renameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errs.ErrArgs.WrapMsg("bad rename body"))
		return
	}
	conv, err := s.reg.Get(num)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := conv.Rename(req.Name, acting); err != nil {
		writeError(c, err)
		return
	}
	s.PublishEvent(c.Request.Context(), &model.Event{
		Type: model.EventConversationRenamed, ConversationNumber: num, Name: req.Name,
	})
	c.JSON(http.StatusOK, gin.H{})
}

func (s *Server) HandlerSnapshot(c *gin.Context) {
	acting := security.ActingUsername(c)
	num, ok := pathNumber(c)
	if !ok {
		return
	}
	conv, err := s.reg.Get(num)
	if err != nil {
		writeError(c, err)
		return
	}
	snap, err := conv.Snapshot(acting)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) HandlerDelta(c *gin.Context) {
	acting := security.ActingUsername(c)
	num, ok := pathNumber(c)
	if !ok {
		return
	}
	var q model.DeltaQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		writeError(c, errs.ErrArgs.WrapMsg("bad delta query"))
		return
	}
	q.ConversationNumber = num
	q.ActingUsername = acting
	if q.Date.IsZero() {
		q.Date = model.Today()
	}
	delta, err := s.reg.DeltaSince(q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, delta)
}

// HandlerAddMessages inserts one message or an atomic same-date batch.
// An omitted sender means the acting user; an omitted sent time means
// now.
func (s *Server) HandlerAddMessages(c *gin.Context) {
	acting := security.ActingUsername(c)
	num, ok := pathNumber(c)
	if !ok {
		return
	}
	var req messagesReq
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Messages) == 0 {
		writeError(c, errs.ErrArgs.WrapMsg("bad messages body"))
		return
	}
	conv, err := s.reg.Get(num)
	if err != nil {
		writeError(c, err)
		return
	}
	msgs := make([]*model.Message, 0, len(req.Messages))
	for i := range req.Messages {
		m := req.Messages[i]
		if m.FromUsername == "" {
			m.FromUsername = acting
		}
		if m.SentAt.IsZero() {
			m.SentAt = time.Now()
		}
		m.MessageNumber = 0
		msgs = append(msgs, &m)
	}
	if len(msgs) == 1 {
		err = conv.AddMessage(msgs[0])
	} else {
		err = conv.AddAllMessagesWithSameDate(msgs)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, *m)
		s.PublishEvent(c.Request.Context(), &model.Event{
			Type: model.EventMessageAdded, ConversationNumber: num, Message: m,
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

func (s *Server) HandlerRemoveMessage(c *gin.Context) {
	acting := security.ActingUsername(c)
	num, ok := pathNumber(c)
	if !ok {
		return
	}
	var req removeMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errs.ErrArgs.WrapMsg("bad remove body"))
		return
	}
	conv, err := s.reg.Get(num)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := conv.RemoveMessage(&req.Message, acting); err != nil {
		writeError(c, err)
		return
	}
	s.PublishEvent(c.Request.Context(), &model.Event{
		Type: model.EventMessageRemoved, ConversationNumber: num, Message: &req.Message,
	})
	c.JSON(http.StatusOK, gin.H{})
}

// HandlerAddMembers adds one member or an atomic batch.
func (s *Server) HandlerAddMembers(c *gin.Context) {
	acting := security.ActingUsername(c)
	num, ok := pathNumber(c)
	if !ok {
		return
	}
	var req membersReq
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Usernames) == 0 {
		writeError(c, errs.ErrArgs.WrapMsg("bad members body"))
		return
	}
	conv, err := s.reg.Get(num)
	if err != nil {
		writeError(c, err)
		return
	}
	var added []model.Member
	if len(req.Usernames) == 1 {
		m, err := conv.AddMember(req.Usernames[0], acting)
		if err != nil {
			writeError(c, err)
			return
		}
		added = []model.Member{m}
	} else {
		added, err = conv.AddAllMembers(req.Usernames, acting)
		if err != nil {
			writeError(c, err)
			return
		}
	}
	for i := range added {
		s.PublishEvent(c.Request.Context(), &model.Event{
			Type: model.EventMemberAdded, ConversationNumber: num, Member: &added[i],
		})
	}
	c.JSON(http.StatusOK, gin.H{"members": added})
}

func (s *Server) HandlerRemoveMembers(c *gin.Context) {
	acting := security.ActingUsername(c)
	num, ok := pathNumber(c)
	if !ok {
		return
	}
	var req membersReq
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Usernames) == 0 {
		writeError(c, errs.ErrArgs.WrapMsg("bad members body"))
		return
	}
	conv, err := s.reg.Get(num)
	if err != nil {
		writeError(c, err)
		return
	}
	var removed []model.Member
	if len(req.Usernames) == 1 {
		m, err := conv.RemoveMember(req.Usernames[0], acting)
		if err != nil {
			writeError(c, err)
			return
		}
		removed = []model.Member{m}
	} else {
		removed, err = conv.RemoveAllMembers(req.Usernames, acting)
		if err != nil {
			writeError(c, err)
			return
		}
	}
	for i := range removed {
		s.PublishEvent(c.Request.Context(), &model.Event{
			Type: model.EventMemberRemoved, ConversationNumber: num, Member: &removed[i],
		})
	}
	c.JSON(http.StatusOK, gin.H{"members": removed})
}
