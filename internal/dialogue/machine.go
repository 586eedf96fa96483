// Package dialogue implements the upload and topic-selection conversation
// as an explicit state machine. Transition is pure; Controller executes
// the resulting actions against the chat transport and the state manager.
package dialogue

// State is a chat's position in the conversation.
type State int

const (
	// StateIdle is the implicit end state: no conversation in progress.
	StateIdle State = iota
	StateAwaitingUpload
	StateSelectingTopics
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingUpload:
		return "awaiting_upload"
	case StateSelectingTopics:
		return "selecting_topics"
	default:
		return "unknown"
	}
}

// EventKind identifies what the user did.
type EventKind int

const (
	EventUploadCommand EventKind = iota + 1
	EventTopicsCommand
	EventDocument
	EventText
	EventOther // a message with neither text nor a document
	EventTagToggle
	EventTopicsDone
	EventCancel
	// EventIngested is raised by the Controller once an ingestion run
	// finishes; Outcome says how it went.
	EventIngested
)

// Outcome reports how an ingestion run ended.
type Outcome int

const (
	OutcomeIngested Outcome = iota + 1 // new highlights stored
	OutcomeNoNew                       // everything was a duplicate
	OutcomeEmpty                       // nothing parsed
	OutcomeUnreadable                  // download or decode failed
	OutcomeFailed                      // unexpected error, nothing to report
)

// Event is one user (or ingestion) input.
type Event struct {
	Kind      EventKind
	FileName  string  // EventDocument
	FileID    string  // EventDocument
	Text      string  // EventText
	Tag       string  // EventTagToggle
	MessageID int     // message carrying the keyboard, for callbacks
	Outcome   Outcome // EventIngested
}

// Action is the side effect a transition asks for.
type Action int

const (
	ActionIgnore Action = iota
	ActionPromptUpload
	ActionRejectFile
	ActionPromptRetry
	ActionIngestDocument
	ActionIngestText
	ActionReportUnreadable
	ActionReportEmpty
	ActionReportNoNew
	ActionReportFailure
	ActionReportNoTopics
	ActionShowTopicKeyboard // after an upload
	ActionShowTopics        // from the topics command
	ActionNoTopics
	ActionToggleTag
	ActionFinishTopics
	ActionCancel
)

var actionNames = map[Action]string{
	ActionIgnore:            "ignore",
	ActionPromptUpload:      "prompt_upload",
	ActionRejectFile:        "reject_file",
	ActionPromptRetry:       "prompt_retry",
	ActionIngestDocument:    "ingest_document",
	ActionIngestText:        "ingest_text",
	ActionReportUnreadable:  "report_unreadable",
	ActionReportEmpty:       "report_empty",
	ActionReportNoNew:       "report_no_new",
	ActionReportFailure:     "report_failure",
	ActionReportNoTopics:    "report_no_topics",
	ActionShowTopicKeyboard: "show_topic_keyboard",
	ActionShowTopics:        "show_topics",
	ActionNoTopics:          "no_topics",
	ActionToggleTag:         "toggle_tag",
	ActionFinishTopics:      "finish_topics",
	ActionCancel:            "cancel",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "unknown"
}

// Transition decides the next state and action. hasTags reports whether
// the chat's collection currently carries any tag.
func Transition(s State, ev Event, hasTags bool) (State, Action) {
	// Commands and cancel apply in every state.
	switch ev.Kind {
	case EventCancel:
		return StateIdle, ActionCancel
	case EventUploadCommand:
		return StateAwaitingUpload, ActionPromptUpload
	case EventTopicsCommand:
		if !hasTags {
			return StateIdle, ActionNoTopics
		}
		return StateSelectingTopics, ActionShowTopics
	}

	switch s {
	case StateAwaitingUpload:
		return awaitingUpload(ev, hasTags)

	case StateSelectingTopics:
		switch ev.Kind {
		case EventTagToggle:
			return StateSelectingTopics, ActionToggleTag
		case EventTopicsDone:
			return StateIdle, ActionFinishTopics
		case EventDocument:
			// Only a further .txt upload leaves the topic keyboard.
			if !isTextDocument(ev.FileName) {
				return StateSelectingTopics, ActionIgnore
			}
			return awaitingUpload(ev, hasTags)
		case EventText, EventIngested:
			// A further upload while choosing topics is accepted.
			return awaitingUpload(ev, hasTags)
		}
	}

	return s, ActionIgnore
}

func awaitingUpload(ev Event, hasTags bool) (State, Action) {
	switch ev.Kind {
	case EventDocument:
		if !isTextDocument(ev.FileName) {
			return StateAwaitingUpload, ActionRejectFile
		}
		return StateAwaitingUpload, ActionIngestDocument
	case EventText:
		return StateAwaitingUpload, ActionIngestText
	case EventOther:
		return StateAwaitingUpload, ActionPromptRetry
	case EventIngested:
		switch ev.Outcome {
		case OutcomeIngested:
			if !hasTags {
				return StateIdle, ActionReportNoTopics
			}
			return StateSelectingTopics, ActionShowTopicKeyboard
		case OutcomeNoNew:
			return StateIdle, ActionReportNoNew
		case OutcomeEmpty:
			return StateIdle, ActionReportEmpty
		case OutcomeUnreadable:
			return StateAwaitingUpload, ActionReportUnreadable
		default:
			return StateIdle, ActionReportFailure
		}
	}
	return StateAwaitingUpload, ActionIgnore
}
