package hub

// Frame is one value pushed to a client.
type Frame struct {
	Channel string `json:"channel"`
	Value   any    `json:"value"`
}

// Frame channels that are not application state channels.
const (
	FrameNavBar        = "navbar"
	FrameNotification  = "notification"
	FrameError         = "error"
	FrameSessionOpened = "session"
)

// Command types accepted from a client.
const (
	CmdSearch     = "search"
	CmdProgress   = "progress"
	CmdShowAmount = "showAmount"
	CmdReload     = "reload"
	CmdNavigate   = "navigate"
	CmdMenu       = "menu"
	CmdView       = "view"
)

// Command is one message received from a client.
type Command struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Flag *bool  `json:"flag,omitempty"`
	Path string `json:"path,omitempty"`
}
