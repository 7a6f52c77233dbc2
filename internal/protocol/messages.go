package protocol

// Position is a player position. X and Y are required on the wire; Z defaults
// to 0 when absent.
type Position struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z,omitempty"`
}

// HELLO (client -> server): identifies the connection and scopes it to a
// channel + level.
type HelloMsg struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Channel string `json:"channel,omitempty"`
	Level   string `json:"level,omitempty"`
}

// UPDATE (client -> server): periodic heartbeat carrying the player's state.
type UpdateMsg struct {
	Type     string   `json:"type,omitempty"`
	ID       string   `json:"id"`
	Pos      Position `json:"pos"`
	State    string   `json:"state"`
	Rotation *float64 `json:"rotation,omitempty"`
	Frozen   bool     `json:"frozen,omitempty"`
	Channel  string   `json:"channel,omitempty"`
	Level    string   `json:"level,omitempty"`
}

// UPDATE (server -> client): the compact delta rebroadcast to the scope.
// Frozen is only serialized when set; Rotation only for the ball state.
type UpdateBroadcast struct {
	Type     string   `json:"type"`
	Now      int64    `json:"now"`
	ID       string   `json:"id"`
	Pos      PosOut   `json:"pos"`
	State    string   `json:"state"`
	Channel  string   `json:"channel"`
	Level    string   `json:"level"`
	Frozen   bool     `json:"frozen,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
}

type PosOut struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// SNAPSHOT (server -> client): everyone else in the caller's scope.
type SnapshotMsg struct {
	Type    string          `json:"type"`
	Now     int64           `json:"now"`
	TTLMs   int64           `json:"ttlMs"`
	Players []SnapshotEntry `json:"players"`
}

type SnapshotEntry struct {
	ID       string   `json:"id"`
	Pos      PosOut   `json:"pos"`
	State    string   `json:"state"`
	AgeMs    int64    `json:"ageMs"`
	Channel  string   `json:"channel"`
	Level    string   `json:"level"`
	Frozen   bool     `json:"frozen,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
}

// MAP_EDIT / TILE_EDIT / ITEM_EDIT / PORTAL_EDIT (client -> server).
type MapEditMsg struct {
	Type string  `json:"type"`
	Ops  []MapOp `json:"ops"`
}

type TileEditMsg struct {
	Type string   `json:"type"`
	Ops  []TileOp `json:"ops"`
}

type ItemEditMsg struct {
	Type string   `json:"type"`
	Ops  []ItemOp `json:"ops"`
}

type PortalEditMsg struct {
	Type string     `json:"type"`
	Ops  []PortalOp `json:"ops"`
}

// MAP_SYNC / TILES_SYNC (client -> server). Have is the client's idea of its
// current version; the server ignores it and always resends full state.
type SyncMsg struct {
	Type string `json:"type"`
	Have int64  `json:"have,omitempty"`
}

// LEVEL_CHANGE (client -> server): moves the connection to another level
// without reconnecting.
type LevelChangeMsg struct {
	Type  string `json:"type"`
	Level string `json:"level"`
}

// MAP_FULL / MAP_OPS (server -> client). A full resync always carries
// baseVersion 0: the client rebuilds the overlay from empty.
type MapFullMsg struct {
	Type        string  `json:"type"`
	Level       string  `json:"level"`
	Version     int64   `json:"version"`
	BaseVersion int64   `json:"baseVersion"`
	Ops         []MapOp `json:"ops"`
}

type MapOpsMsg struct {
	Type    string  `json:"type"`
	Level   string  `json:"level"`
	Version int64   `json:"version"`
	Ops     []MapOp `json:"ops"`
}

type TilesFullMsg struct {
	Type        string   `json:"type"`
	Level       string   `json:"level"`
	Version     int64    `json:"version"`
	BaseVersion int64    `json:"baseVersion"`
	Ops         []TileOp `json:"ops"`
}

type TileOpsMsg struct {
	Type    string   `json:"type"`
	Level   string   `json:"level"`
	Version int64    `json:"version"`
	Ops     []TileOp `json:"ops"`
}

// PORTAL_FULL / PORTAL_OPS (server -> client). Portals carry no version;
// clients recover missed ops via the level bundle.
type PortalFullMsg struct {
	Type    string            `json:"type"`
	Level   string            `json:"level"`
	Portals map[string]string `json:"portals"`
}

type PortalOpsMsg struct {
	Type  string     `json:"type"`
	Level string     `json:"level"`
	Ops   []PortalOp `json:"ops"`
}

type ItemsFullMsg struct {
	Type  string     `json:"type"`
	Level string     `json:"level"`
	Items []ItemWire `json:"items"`
}

type ItemOpsMsg struct {
	Type  string   `json:"type"`
	Level string   `json:"level"`
	Ops   []ItemOp `json:"ops"`
}

type ItemWire struct {
	GX      int     `json:"gx"`
	GY      int     `json:"gy"`
	H       float64 `json:"h"`
	Kind    int     `json:"kind"`
	Payload string  `json:"payload,omitempty"`
}

// LEVELS (server -> client): every known level and its current map version.
type LevelsMsg struct {
	Type   string      `json:"type"`
	Levels []LevelInfo `json:"levels"`
}

type LevelInfo struct {
	Level      string `json:"level"`
	MapVersion int64  `json:"mapVersion"`
}

// PONG (server -> client). Music is the cosmetic music-position clock.
type PongMsg struct {
	Type  string  `json:"type"`
	Now   int64   `json:"now"`
	Music float64 `json:"music"`
}
