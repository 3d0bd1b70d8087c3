package stream

import (
	"github.com/hackai/chatd/models"
)

// Reconciler folds a sequence of frames into a message. At most one part of
// each streaming kind (text, reasoning) may be open at a time; a delta for
// the wrong part, or for no open part, is a protocol violation.
type Reconciler struct {
	msg models.Message

	openText      int // index into msg.Parts, -1 when closed
	openTextID    string
	openReasoning int
	openReasonID  string

	finished bool
	errText  string
}

func NewReconciler(messageID string) *Reconciler {
	return &Reconciler{
		msg:           models.Message{ID: messageID, Role: models.RoleAssistant},
		openText:      -1,
		openReasoning: -1,
	}
}

// Apply folds one frame into the message. It returns a *models.ProtocolError
// on a framing violation; the caller must abort the stream in that case.
func (r *Reconciler) Apply(f Frame) error {
	switch f.Type {
	case FrameStart:
		if f.MessageID != "" {
			r.msg.ID = f.MessageID
		}
		return nil

	case FrameStartStep:
		r.msg.Append(models.StepStartPart())
		return nil

	case FrameFinishStep:
		// Step boundaries close implicitly; nothing to record.
		return nil

	case FrameTextStart:
		if r.openText != -1 {
			return &models.ProtocolError{Frame: string(f.Type), Reason: "text part already open"}
		}
		part := models.TextPart("")
		part.ProviderMetadata = f.ProviderMetadata
		r.msg.Append(part)
		r.openText = len(r.msg.Parts) - 1
		r.openTextID = f.ID
		return nil

	case FrameTextDelta:
		if r.openText == -1 || f.ID != r.openTextID {
			return &models.ProtocolError{Frame: string(f.Type), Reason: "delta for unopened text part"}
		}
		r.msg.Parts[r.openText].Text += f.Delta
		return nil

	case FrameTextEnd:
		if r.openText == -1 || f.ID != r.openTextID {
			return &models.ProtocolError{Frame: string(f.Type), Reason: "end for unopened text part"}
		}
		r.openText = -1
		r.openTextID = ""
		return nil

	case FrameReasoningStart:
		if r.openReasoning != -1 {
			return &models.ProtocolError{Frame: string(f.Type), Reason: "reasoning part already open"}
		}
		part := models.ReasoningPart("")
		part.ProviderMetadata = f.ProviderMetadata
		r.msg.Append(part)
		r.openReasoning = len(r.msg.Parts) - 1
		r.openReasonID = f.ID
		return nil

	case FrameReasoningDelta:
		if r.openReasoning == -1 || f.ID != r.openReasonID {
			return &models.ProtocolError{Frame: string(f.Type), Reason: "delta for unopened reasoning part"}
		}
		r.msg.Parts[r.openReasoning].Text += f.Delta
		return nil

	case FrameReasoningEnd:
		if r.openReasoning == -1 || f.ID != r.openReasonID {
			return &models.ProtocolError{Frame: string(f.Type), Reason: "end for unopened reasoning part"}
		}
		r.openReasoning = -1
		r.openReasonID = ""
		return nil

	case FrameSourceURL:
		if f.SourceID == "" || f.URL == "" {
			return &models.ProtocolError{Frame: string(f.Type), Reason: "missing source id or url"}
		}
		part := models.SourceURLPart(f.SourceID, f.URL, f.Title)
		part.ProviderMetadata = f.ProviderMetadata
		r.msg.Append(part)
		return nil

	case FrameSourceDocument:
		if f.SourceID == "" || f.MediaType == "" || f.Title == "" {
			return &models.ProtocolError{Frame: string(f.Type), Reason: "missing source document fields"}
		}
		part := models.SourceDocumentPart(f.SourceID, f.MediaType, f.Title, f.Filename)
		part.ProviderMetadata = f.ProviderMetadata
		r.msg.Append(part)
		return nil

	case FrameFile:
		if f.MediaType == "" || f.URL == "" {
			return &models.ProtocolError{Frame: string(f.Type), Reason: "missing file fields"}
		}
		r.msg.Append(models.FilePart(f.MediaType, f.Filename, f.URL))
		return nil

	case FrameFinish:
		// Duplicate finish frames must not double-count usage.
		if r.finished {
			return nil
		}
		r.finished = true
		if f.MessageMetadata != nil && f.MessageMetadata.Usage != nil {
			r.msg.SetUsage(*f.MessageMetadata.Usage)
		}
		return nil

	case FrameError:
		r.errText = f.ErrorText
		return nil

	default:
		return &models.ProtocolError{Frame: string(f.Type), Reason: "unknown frame type"}
	}
}

// Message returns a snapshot of the message built so far. The parts slice
// is copied so callers can hold it across further deltas.
func (r *Reconciler) Message() models.Message {
	snap := r.msg
	snap.Parts = make([]models.Part, len(r.msg.Parts))
	copy(snap.Parts, r.msg.Parts)
	if r.msg.Metadata != nil {
		meta := *r.msg.Metadata
		snap.Metadata = &meta
	}
	return snap
}

// Finished reports whether a finish frame has been applied.
func (r *Reconciler) Finished() bool { return r.finished }

// ErrText returns the text of an error frame, if one was received.
func (r *Reconciler) ErrText() string { return r.errText }
