package sessions

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hackai/chatd/hackclub"
	"github.com/hackai/chatd/logger"
	"github.com/hackai/chatd/models"
	"github.com/hackai/chatd/stream"
)

// Status is the session lifecycle state. submitted covers the window
// between send and the first applied frame.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusSubmitted Status = "submitted"
	StatusStreaming Status = "streaming"
	StatusError     Status = "error"
)

// ChatSession owns one conversation's message list and drives the stream
// decoder for it. At most one stream is open at a time; Submit and
// Regenerate fail while one is in flight.
type ChatSession struct {
	chatID    string
	transport Transport
	log       *logger.Logger

	mu            sync.Mutex
	status        Status
	messages      []models.Message
	modelList     []hackclub.Model
	selectedModel string
	disabledWhy   string
	webSearch     bool
	temperature   *float64
	lastErr       error
	cancel        context.CancelFunc
	stopped       bool

	onUpdate func(models.Message)
	onStatus func(Status)
}

// NewChatSession creates a session over existing history. transport must
// not be nil.
func NewChatSession(chatID string, history []models.Message, transport Transport, log *logger.Logger) *ChatSession {
	if log == nil {
		log = logger.NewNop()
	}
	return &ChatSession{
		chatID:    chatID,
		transport: transport,
		log:       log.With("chat_id", chatID),
		status:    StatusIdle,
		messages:  append([]models.Message(nil), history...),
	}
}

// OnUpdate registers the per-delta observer. It is invoked with a snapshot
// of the in-flight assistant message after every applied frame.
func (s *ChatSession) OnUpdate(fn func(models.Message)) { s.onUpdate = fn }

// OnStatus registers the lifecycle observer.
func (s *ChatSession) OnStatus(fn func(Status)) { s.onStatus = fn }

// SetModels installs the model catalog used for compatibility checks and
// auto-selection, in fallback order.
func (s *ChatSession) SetModels(list []hackclub.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modelList = list
	if s.selectedModel == "" && len(list) > 0 {
		s.selectedModel = list[0].ID
	}
	s.ensureCompatibleLocked(nil)
}

// SelectModel switches the model. The switch is refused when the model
// cannot accept a modality already present in the conversation.
func (s *ChatSession) SelectModel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	model, ok := s.lookupLocked(id)
	if !ok {
		return models.Validationf("unknown model %q", id)
	}
	required := models.RequiredModalities(s.messages)
	if missing := models.MissingModalities(model.Architecture.InputModalities, required); len(missing) > 0 {
		return models.Validationf("model %q does not accept %s already in this conversation",
			id, strings.Join(missing, ", "))
	}
	s.selectedModel = id
	s.disabledWhy = ""
	return nil
}

// SetWebSearch toggles the web-search plugin for subsequent submissions.
func (s *ChatSession) SetWebSearch(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webSearch = enabled
}

// SetTemperature overrides the sampling temperature for subsequent
// submissions. nil restores the server default.
func (s *ChatSession) SetTemperature(t *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temperature = t
}

// parametersLocked builds the request override block, nil when every
// parameter is at its default.
func (s *ChatSession) parametersLocked() *StreamParameters {
	if s.temperature == nil {
		return nil
	}
	return &StreamParameters{Temperature: s.temperature}
}

func (s *ChatSession) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *ChatSession) SelectedModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedModel
}

// InputDisabledReason is non-empty when no known model can accept the
// conversation's modalities; submissions are refused until that changes.
func (s *ChatSession) InputDisabledReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabledWhy
}

// Err returns the failure that moved the session to StatusError.
func (s *ChatSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Messages returns a snapshot of the conversation.
func (s *ChatSession) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}

func (s *ChatSession) lookupLocked(id string) (hackclub.Model, bool) {
	for _, m := range s.modelList {
		if m.ID == id {
			return m, true
		}
	}
	return hackclub.Model{}, false
}

// ensureCompatibleLocked re-checks the selected model against the whole
// conversation plus the pending message. An incompatible selection falls
// back to the first compatible model in list order; when nothing is
// compatible the input is disabled instead of allowing a doomed send.
func (s *ChatSession) ensureCompatibleLocked(pending *models.Message) error {
	history := s.messages
	if pending != nil {
		history = append(append([]models.Message(nil), s.messages...), *pending)
	}
	required := models.RequiredModalities(history)

	if model, ok := s.lookupLocked(s.selectedModel); ok {
		if len(models.MissingModalities(model.Architecture.InputModalities, required)) == 0 {
			s.disabledWhy = ""
			return nil
		}
	}

	for _, m := range s.modelList {
		if len(models.MissingModalities(m.Architecture.InputModalities, required)) == 0 {
			s.log.Info("model incompatible with conversation, falling back",
				"from", s.selectedModel, "to", m.ID)
			s.selectedModel = m.ID
			s.disabledWhy = ""
			return nil
		}
	}

	s.disabledWhy = fmt.Sprintf("no available model accepts %s input", strings.Join(required, "+"))
	return models.Validationf("%s", s.disabledWhy)
}

// Submit appends a user message and opens a stream for the reply. It fails
// fast, before any network call, on empty input or when no model can
// accept the conversation's modalities.
func (s *ChatSession) Submit(ctx context.Context, text string, attachments []models.Part) error {
	s.mu.Lock()

	if s.status == StatusSubmitted || s.status == StatusStreaming {
		s.mu.Unlock()
		return models.Validationf("a stream is already in progress")
	}
	if strings.TrimSpace(text) == "" && len(attachments) == 0 {
		s.mu.Unlock()
		return models.Validationf("message is empty")
	}

	msg := models.Message{ID: uuid.NewString(), Role: models.RoleUser}
	msg.Parts = append(msg.Parts, attachments...)
	if strings.TrimSpace(text) != "" {
		msg.Append(models.TextPart(text))
	}

	if err := s.ensureCompatibleLocked(&msg); err != nil {
		s.mu.Unlock()
		return err
	}

	s.messages = append(s.messages, msg)
	req := StreamRequest{
		ChatID:     s.chatID,
		Message:    &msg,
		Model:      s.selectedModel,
		WebSearch:  s.webSearch,
		Parameters: s.parametersLocked(),
	}
	s.beginLocked(ctx, req)
	return nil
}

// Regenerate removes the trailing assistant message and re-issues the
// request for the same user message. It is only valid when the last
// message is an assistant reply.
func (s *ChatSession) Regenerate(ctx context.Context) error {
	s.mu.Lock()

	if s.status == StatusSubmitted || s.status == StatusStreaming {
		s.mu.Unlock()
		return models.Validationf("a stream is already in progress")
	}
	last := len(s.messages) - 1
	if last < 0 || s.messages[last].Role != models.RoleAssistant {
		s.mu.Unlock()
		return models.Validationf("nothing to regenerate: last message is not an assistant reply")
	}

	// The server performs the durable deletion when it sees the
	// regenerate flag; here we only drop the in-memory copy.
	s.messages = s.messages[:last]
	req := StreamRequest{
		ChatID:     s.chatID,
		Model:      s.selectedModel,
		WebSearch:  s.webSearch,
		Regenerate: true,
		Parameters: s.parametersLocked(),
	}
	s.beginLocked(ctx, req)
	return nil
}

// beginLocked transitions to submitted and starts the stream goroutine.
// The caller holds the lock; beginLocked releases it.
func (s *ChatSession) beginLocked(ctx context.Context, req StreamRequest) {
	streamCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopped = false
	s.lastErr = nil
	notify := s.setStatusLocked(StatusSubmitted)
	s.mu.Unlock()
	if notify != nil {
		notify()
	}

	go s.runStream(streamCtx, req)
}

func (s *ChatSession) runStream(ctx context.Context, req StreamRequest) {
	body, err := s.transport.OpenStream(ctx, req)
	if err != nil {
		s.fail(fmt.Errorf("failed to open stream: %w", err))
		return
	}
	defer body.Close()

	rec := stream.NewReconciler("")
	dec := stream.NewDecoder(body, rec, func(snapshot models.Message) {
		s.applyStreamed(snapshot)
	})

	err = dec.Run()
	final := rec.Message()

	s.mu.Lock()
	stopped := s.stopped
	s.cancel = nil
	s.mu.Unlock()

	switch {
	case err == nil:
		s.applyStreamed(final)
		s.settle(StatusIdle)
	case stopped:
		// Cooperative stop keeps the partial reply and returns to idle.
		s.settle(StatusIdle)
	default:
		// The partial message stays in place, marked by the error status.
		s.fail(err)
	}
}

// applyStreamed installs the in-flight assistant snapshot, replacing the
// previous snapshot of the same message. The first applied frame moves the
// session to streaming.
func (s *ChatSession) applyStreamed(snapshot models.Message) {
	if snapshot.ID == "" {
		return
	}
	s.mu.Lock()
	last := len(s.messages) - 1
	if last >= 0 && s.messages[last].ID == snapshot.ID {
		s.messages[last] = snapshot
	} else {
		s.messages = append(s.messages, snapshot)
	}
	var notify func()
	if s.status == StatusSubmitted {
		notify = s.setStatusLocked(StatusStreaming)
	}
	onUpdate := s.onUpdate
	s.mu.Unlock()

	if notify != nil {
		notify()
	}
	if onUpdate != nil {
		onUpdate(snapshot)
	}
}

func (s *ChatSession) fail(err error) {
	s.log.Warn("stream failed", "error", err)
	s.mu.Lock()
	s.lastErr = err
	notify := s.setStatusLocked(StatusError)
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
}

func (s *ChatSession) settle(status Status) {
	s.mu.Lock()
	notify := s.setStatusLocked(status)
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// setStatusLocked updates status and returns the observer call to run
// once the caller has released the lock. Delivering synchronously keeps
// transitions in order; a goroutine per change could reorder them.
func (s *ChatSession) setStatusLocked(status Status) func() {
	s.status = status
	if s.onStatus == nil {
		return nil
	}
	fn := s.onStatus
	return func() { fn(status) }
}

// Stop cancels the in-flight stream. The partial assistant message already
// accumulated is kept; the session returns to idle without waiting for an
// upstream acknowledgment.
func (s *ChatSession) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	if cancel != nil {
		s.stopped = true
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// DeleteFromMessage truncates the conversation strictly before the given
// message, in memory and durably. Used to edit or retry from an earlier
// point.
func (s *ChatSession) DeleteFromMessage(ctx context.Context, messageID string) error {
	s.mu.Lock()
	if s.status == StatusSubmitted || s.status == StatusStreaming {
		s.mu.Unlock()
		return models.Validationf("a stream is already in progress")
	}

	idx := -1
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return models.ErrNotFound
	}
	s.messages = s.messages[:idx]
	s.ensureCompatibleLocked(nil)
	s.mu.Unlock()

	if err := s.transport.DeleteFrom(ctx, s.chatID, messageID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}

// IsBusy reports whether a stream is currently open.
func (s *ChatSession) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == StatusSubmitted || s.status == StatusStreaming
}
