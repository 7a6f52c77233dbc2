package protocol

// Edit op verbs.
const (
	OpAdd    = "add"
	OpRemove = "remove"
	OpSet    = "set"
)

// MapOp is one cell edit in a map_edit batch or a net-op broadcast.
// K is a 3D cell key "gx,gy,h"; T is a block type tag, omitted when NORMAL.
type MapOp struct {
	Op string `json:"op"`
	K  string `json:"k"`
	T  int    `json:"t,omitempty"`
}

// TileOp sets a ground-tile override. K is a 2D cell key "gx,gy". There is no
// remove verb; tile overrides can only be written.
type TileOp struct {
	K string `json:"k"`
	V int    `json:"v"`
}

// ItemOp adds or removes one placed pickup.
type ItemOp struct {
	Op      string  `json:"op"`
	GX      int     `json:"gx"`
	GY      int     `json:"gy"`
	H       float64 `json:"h,omitempty"`
	Kind    int     `json:"kind"`
	Payload string  `json:"payload,omitempty"`
}

// PortalOp sets or removes one border-cell portal mapping.
type PortalOp struct {
	Op   string `json:"op"`
	K    string `json:"k"`
	Dest string `json:"dest,omitempty"`
}
