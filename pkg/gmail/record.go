package gmail

// EmailRecord is the canonical, immutable form of one provider message.
// Records live only for the duration of a processing run.
type EmailRecord struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId"`
	Snippet  string   `json:"snippet"`
	Sender   string   `json:"sender"`
	Subject  string   `json:"subject"`
	Date     string   `json:"date"`
	Body     string   `json:"body"`
	IsRead   bool     `json:"isRead"`
	Labels   []string `json:"labels"`
}
