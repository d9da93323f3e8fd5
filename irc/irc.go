// Package irc implements scanning and formatting of IRC messages.
//
// Messages follow RFC 1459 framing with optional IRCv3 tags. This package
// does not handle connections; it reads messages from any bufio.Reader, such
// as one wrapping a net.Conn.
package irc

import (
	"bufio"
	"strings"
	"unicode/utf8"
)

// Message is a single IRC message.
type Message struct {
	// Tags is the raw IRCv3 tags component of the message, if any.
	Tags string
	// Sender is the source of the message.
	Sender
	// Command is the message command or numeric response code.
	Command string
	// Params is the "middle" parameters of the message.
	Params []string
	// Trailing is the "trailing" parameter of the message.
	Trailing string
}

// Privmsg creates a PRIVMSG message for sending.
func Privmsg(to, text string) Message {
	return Message{Command: "PRIVMSG", Params: []string{to}, Trailing: text}
}

// To returns the first parameter, which is the target of a PRIVMSG, or the
// empty string if there are no parameters.
func (m Message) To() string {
	if len(m.Params) == 0 {
		return ""
	}
	return m.Params[0]
}

// Text returns the final parameter of the message, whether it was sent as
// trailing or as a middle parameter. For PRIVMSG, it is the message text.
func (m Message) Text() string {
	if m.Trailing != "" || len(m.Params) < 2 {
		return m.Trailing
	}
	return m.Params[len(m.Params)-1]
}

// String formats the message as an IRC line appropriate for sending, not
// including the ending CR LF sequence. This does not perform any validation.
func (m Message) String() string {
	var b strings.Builder
	if m.Tags != "" {
		b.WriteByte('@')
		b.WriteString(m.Tags)
		b.WriteByte(' ')
	}
	if snd := m.Sender.String(); snd != "" {
		b.WriteByte(':')
		b.WriteString(snd)
		b.WriteByte(' ')
	}
	b.WriteString(m.Command)
	for _, p := range m.Params {
		b.WriteByte(' ')
		b.WriteString(p)
	}
	if m.Trailing != "" {
		b.WriteString(" :")
		b.WriteString(m.Trailing)
	}
	return b.String()
}

// Sender is a message source. It may represent a user or a server.
type Sender struct {
	// Nick is the nick of the user who produced the message, or the server
	// name for messages not produced by users.
	Nick string
	// User is the username of the user who produced the message, if any.
	User string
	// Host is the hostname of the user who produced the message, if any.
	Host string
}

// ParseSender splits a message prefix of the form nick!user@host.
// The user and host parts are optional.
func ParseSender(s string) Sender {
	var snd Sender
	s, snd.Host, _ = strings.Cut(s, "@")
	snd.Nick, snd.User, _ = strings.Cut(s, "!")
	return snd
}

// String formats the sender as "nick!user@host". Separators are omitted for
// empty fields where valid.
func (s Sender) String() string {
	if s.Host != "" {
		if s.User != "" {
			return s.Nick + "!" + s.User + "@" + s.Host
		}
		return s.Nick + "@" + s.Host
	}
	return s.Nick
}

// Parse reads and parses one message. Errors from r are returned as is.
// A line that cannot be parsed, including one longer than r's buffer, gives
// a Malformed error; the line is consumed, so reading can continue.
func Parse(r *bufio.Reader) (Message, error) {
	b, err := r.ReadSlice('\n')
	switch err {
	case nil:
		return ParseLine(string(b))
	case bufio.ErrBufferFull:
		for err == bufio.ErrBufferFull {
			_, err = r.ReadSlice('\n')
		}
		if err != nil {
			return Message{}, err
		}
		return Message{}, Malformed{stage: "length"}
	default:
		return Message{}, err
	}
}

// ParseLine parses a single message from a line, with or without its line
// ending.
func ParseLine(line string) (msg Message, err error) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	if strings.ContainsAny(line, "\x00\r\n") {
		return Message{}, Malformed{stage: "line"}
	}
	if strings.HasPrefix(line, "@") {
		var ok bool
		msg.Tags, line, ok = strings.Cut(line[1:], " ")
		if !ok || msg.Tags == "" {
			return Message{}, Malformed{stage: "tags"}
		}
		line = strings.TrimLeft(line, " ")
	}
	if strings.HasPrefix(line, ":") {
		src, rest, ok := strings.Cut(line[1:], " ")
		if !ok || src == "" {
			return Message{}, Malformed{stage: "sender"}
		}
		msg.Sender = ParseSender(src)
		line = strings.TrimLeft(rest, " ")
	}
	msg.Command, line, _ = strings.Cut(line, " ")
	if msg.Command == "" {
		return Message{}, Malformed{stage: "command"}
	}
	for {
		line = strings.TrimLeft(line, " ")
		if line == "" {
			return msg, nil
		}
		if line[0] == ':' {
			msg.Trailing = line[1:]
			return msg, nil
		}
		var p string
		p, line, _ = strings.Cut(line, " ")
		msg.Params = append(msg.Params, p)
	}
}

// lineLimit is the maximum length of an IRC line including CR LF.
const lineLimit = 512

// prefixReserve is the space left for the sender prefix that servers add when
// relaying a message to other clients.
const prefixReserve = 100

// minText is the least text sent per line regardless of target length.
const minText = 64

// Privmsgs creates the PRIVMSG messages needed to send text to a target.
// The text is split at CR and LF, and lines too long for one message are
// split further without breaking UTF-8 sequences. NUL bytes and empty lines
// are dropped.
func Privmsgs(to, text string) []Message {
	limit := max(lineLimit-len("PRIVMSG  :\r\n")-len(to)-prefixReserve, minText)
	text = strings.ReplaceAll(text, "\x00", "")
	lines := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' })
	var msgs []Message
	for _, line := range lines {
		for line != "" {
			k := len(line)
			if k > limit {
				k = limit
				for k > 0 && !utf8.RuneStart(line[k]) {
					k--
				}
				if k == 0 {
					k = limit
				}
			}
			msgs = append(msgs, Privmsg(to, line[:k]))
			line = line[k:]
		}
	}
	return msgs
}

// Malformed indicates a malformed IRC message.
type Malformed struct {
	stage string
}

func (err Malformed) Error() string {
	return "malformed " + err.stage
}
