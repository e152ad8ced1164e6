// Package messaging defines the topic bus wire envelope and delivered
// message types.
package messaging

import "github.com/hay-kot/reactions/internal/core/reaction"

// ResetTopic is the reserved topic used to signal a counter reset. Items on
// it carry no reaction payload; their presence is the signal.
const ResetTopic = "reset"

// TopicResponse is the body returned by a long-poll read of a topic.
type TopicResponse struct {
	Items []TopicItemContainer `json:"items"`
}

// TopicItemContainer wraps a single topic item.
type TopicItemContainer struct {
	Item TopicItem `json:"item"`
}

// TopicItem is one message stored on a topic.
type TopicItem struct {
	TopicSequenceNumber uint64       `json:"topic_sequence_number"`
	SequencePage        uint64       `json:"sequence_page"`
	Value               TopicMessage `json:"value"`
}

// TopicMessage holds the published payload. Text is itself JSON.
type TopicMessage struct {
	Text string `json:"text"`
}

// Texts returns the payload text of every item in page order.
func (r TopicResponse) Texts() []string {
	out := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, it.Item.Value.Text)
	}
	return out
}

// Message is delivered to multi-topic subscribers. Topic names the topic that
// produced it. Reset messages leave Reaction empty.
type Message struct {
	Topic    string
	Reaction reaction.Reaction
	Reset    bool
}
