package wsrelay

// Message types.
const (
	TypeHello   = "hello"
	TypePublish = "publish"
	TypePreview = "preview"
	TypeUpdate  = "update"
)

// Message is the JSON envelope exchanged on the socket. Type selects which
// fields are meaningful:
//   - hello (peer → relay): Client, Resume
//   - publish (peer → relay): Payload
//   - preview (both ways): Payload
//   - update (relay → peer): Serial, MaxSerial, Payload
type Message struct {
	Type      string `json:"type"`
	Client    string `json:"client,omitempty"`
	Resume    uint64 `json:"resume,omitempty"`
	Serial    uint64 `json:"serial,omitempty"`
	MaxSerial uint64 `json:"maxSerial,omitempty"`
	Payload   []byte `json:"payload,omitempty"`
}
