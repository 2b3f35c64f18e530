package glog

// sectionKind identifies the tag of a [tag|value] section.
type sectionKind uint8

const (
	kindUnknown sectionKind = iota
	kindTimestampMs
	kindSeverity
	kindLogSource
	kindMessage
	kindErrorCode
	kindSessionID
	kindTimestamp100ns
)

// Tags as written by the firmware. tq and i come from controllers; e, n and t
// from sensors.
var sectionTags = map[string]sectionKind{
	"tq": kindTimestampMs,
	"s":  kindSeverity,
	"i":  kindLogSource,
	"m":  kindMessage,
	"e":  kindErrorCode,
	"n":  kindSessionID,
	"t":  kindTimestamp100ns,
}

func (k sectionKind) String() string {
	switch k {
	case kindTimestampMs:
		return "timestamp-ms"
	case kindSeverity:
		return "severity"
	case kindLogSource:
		return "log-source"
	case kindMessage:
		return "message"
	case kindErrorCode:
		return "error-code"
	case kindSessionID:
		return "session-id"
	case kindTimestamp100ns:
		return "timestamp-100ns"
	default:
		return "unknown"
	}
}

type stateID uint8

const (
	statePreSection   stateID = iota // expect '[', skip '\r' and '\n'
	stateSectionKind                 // kind bytes until '|'
	stateSectionValue                // value bytes until ']'
	stateValuePost1                  // after ']': expect ':', '\r' or '\n'
	stateValuePost2                  // after "]\r": expect '\n'
	stateValuePost3                  // terminator seen: expect '[' to commit
)

// state is the parser position. kind is meaningful from stateSectionValue on;
// cutoff and done only in stateValuePost3.
type state struct {
	id     stateID
	kind   sectionKind
	cutoff int  // trailing terminator bytes to trim from the buffer
	done   bool // the terminator ended the entry
}

// effect is the side effect the parser applies for a transition.
type effect uint8

const (
	effNone     effect = iota
	effInvalid         // count a stray byte outside any section
	effPush            // append the byte to the buffer
	effClassify        // buffer holds a complete kind tag
	effCommit          // append the byte, then commit the buffered value
)

// transition is the whole grammar. A ']' only terminates a value when the next
// byte is ':', '\r' or '\n'; otherwise it is part of the value. A '[' after a
// terminator always starts the next section.
func transition(s state, c byte) (state, effect) {
	switch s.id {
	case statePreSection:
		switch c {
		case '[':
			return state{id: stateSectionKind}, effNone
		case '\r', '\n':
			return s, effNone
		default:
			return s, effInvalid
		}

	case stateSectionKind:
		if c == '|' {
			return state{id: stateSectionValue}, effClassify
		}
		return s, effPush

	case stateSectionValue:
		if c == ']' {
			return state{id: stateValuePost1, kind: s.kind}, effPush
		}
		return s, effPush

	case stateValuePost1:
		switch c {
		case ':':
			return state{id: stateValuePost3, kind: s.kind, cutoff: 3}, effPush
		case '\r':
			return state{id: stateValuePost2, kind: s.kind}, effPush
		case '\n':
			return state{id: stateValuePost3, kind: s.kind, cutoff: 3, done: true}, effPush
		case ']':
			return s, effPush
		default:
			return state{id: stateSectionValue, kind: s.kind}, effPush
		}

	case stateValuePost2:
		switch c {
		case '\n':
			return state{id: stateValuePost3, kind: s.kind, cutoff: 4, done: true}, effPush
		case ']':
			return state{id: stateValuePost1, kind: s.kind}, effPush
		default:
			return state{id: stateSectionValue, kind: s.kind}, effPush
		}

	case stateValuePost3:
		switch c {
		case '[':
			return state{id: stateSectionKind}, effCommit
		case ']':
			return state{id: stateValuePost1, kind: s.kind}, effPush
		default:
			return state{id: stateSectionValue, kind: s.kind}, effPush
		}
	}
	return s, effNone
}
