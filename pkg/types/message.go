package types

const (
	MsgKeyID       = "_msgid"
	MsgKeyPayload  = "payload"
	MsgKeyFilename = "filename"
	MsgKeyEncoding = "encoding"
	MsgKeyTrace    = "dynamicFilePath"
)

// Message is a loosely typed flow message. Values are whatever the ingest decoded:
// strings, float64 numbers, bools, nested maps/slices, []byte for raw buffers.
type Message map[string]interface{}

func (m Message) Payload() (interface{}, bool) {
	p, ok := m[MsgKeyPayload]
	return p, ok
}

func (m Message) String(key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func (m Message) ID() string {
	return m.String(MsgKeyID)
}

// Traced reports whether dynamicFilePath.debug is "true" on the message or its payload.
func (m Message) Traced() bool {
	if traceFlag(m[MsgKeyTrace]) {
		return true
	}
	if p, ok := m[MsgKeyPayload].(map[string]interface{}); ok {
		return traceFlag(p[MsgKeyTrace])
	}
	return false
}

func traceFlag(v interface{}) bool {
	switch t := v.(type) {
	case map[string]interface{}:
		return t["debug"] == "true"
	case Message:
		return t["debug"] == "true"
	}
	return false
}

// Clone is shallow; nested values are shared.
func (m Message) Clone() Message {
	c := make(Message, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
