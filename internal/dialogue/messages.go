package dialogue

import (
	"strings"

	"github.com/hurttlocker/nuggets/internal/highlight"
	"github.com/hurttlocker/nuggets/internal/nugget"
)

// Callback data carried by the topic keyboard.
const (
	CallbackTagPrefix  = "tag_"
	CallbackTopicsDone = "done_topics"
)

const doneButtonText = "Done Selecting Topics"

// Reply texts.
const (
	promptUploadText = "Please upload your Kindle highlights as a <b>.txt document</b> (e.g., your 'My Clippings.txt' file). " +
		"I will automatically analyze the text and suggest topics for you."
	rejectFileText  = "Please upload a <b>.txt</b> file. Other file types are not supported for highlights."
	promptRetryText = "It seems you didn't send a .txt file or any text. Please try again."
	unreadableText  = "Sorry, I had trouble reading that file. Please make sure it's a plain text (.txt) file and try again."
	thanksText      = "Thanks for the text! For larger collections, uploading a .txt file is recommended."
	emptyText       = "Could not find any clear highlights in your input. Please ensure your .txt file or text is clearly formatted."
	failureText     = "Sorry, something went wrong while processing your highlights. Please try /upload again."
	noTopicsFound   = "The smart service didn't find specific topics, but your highlights are saved. " +
		"You can now use /wisdom to get a random nugget or /upload to add more."
	topicsFoundText = "Here are the topics found in your highlights. Select the ones you're interested in:"
	selectTopicText = "Select or deselect topics:"
	noTopicsText    = "You haven't uploaded any highlights yet, so there are no topics to choose from. Use /upload to add your highlights."
	cancelText      = "Operation cancelled."
)

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Message is a transport-agnostic outbound message.
type Message struct {
	Text     string
	HTML     bool
	Silent   bool
	Keyboard [][]Button
}

// TopicKeyboard renders one row per tag, checked when selected, plus the
// done button.
func TopicKeyboard(tags, selected []string) [][]Button {
	sel := make(map[string]struct{}, len(selected))
	for _, t := range selected {
		sel[t] = struct{}{}
	}
	rows := make([][]Button, 0, len(tags)+1)
	for _, t := range tags {
		label := "#" + t
		if _, ok := sel[t]; ok {
			label = "✅ " + label
		}
		rows = append(rows, []Button{{Text: label, Data: CallbackTagPrefix + t}})
	}
	return append(rows, []Button{{Text: doneButtonText, Data: CallbackTopicsDone}})
}

// ParseCallback maps keyboard callback data to an event.
func ParseCallback(data string, messageID int) (Event, bool) {
	switch {
	case data == CallbackTopicsDone:
		return Event{Kind: EventTopicsDone, MessageID: messageID}, true
	case strings.HasPrefix(data, CallbackTagPrefix):
		return Event{Kind: EventTagToggle, Tag: strings.TrimPrefix(data, CallbackTagPrefix), MessageID: messageID}, true
	}
	return Event{}, false
}

// currentTopicsText echoes the selection after a toggle.
func currentTopicsText(selected []string) string {
	if len(selected) == 0 {
		return "Your current topics: None selected"
	}
	return "Your current topics: " + nugget.Hashtags(selected, ", ")
}

// finishedText summarises the selection when the user is done.
func finishedText(selected []string) string {
	if len(selected) == 0 {
		return "No topics selected. You will receive random wisdom nuggets from all uploaded highlights. " +
			"Use /topics to select some, or /wisdom for a random one."
	}
	return "Great! Your selected topics are: " + nugget.Hashtags(selected, ", ") + ".\n" +
		"Use /wisdom to get a nugget from these topics, or /topics to change them."
}

func isTextDocument(name string) bool {
	return highlight.IsTextDocument(name)
}
