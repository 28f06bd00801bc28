package domain

// Reply is one outbound message. Markdown marks text that uses *bold*
// markup so transports can set a parse mode.
type Reply struct {
	Text     string `json:"text"`
	Markdown bool   `json:"markdown,omitempty"`
}

// Plain returns a reply without markup.
func Plain(text string) Reply {
	return Reply{Text: text}
}

// Markdown returns a reply with *bold* markup.
func Markdown(text string) Reply {
	return Reply{Text: text, Markdown: true}
}
