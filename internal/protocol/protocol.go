package protocol

import "encoding/json"

// Inbound message types. A message without a "type" field is treated as an
// update, which is what the original polling clients always sent.
const (
	TypeHello       = "hello"
	TypeUpdate      = "update"
	TypeMapEdit     = "map_edit"
	TypeTileEdit    = "tile_edit"
	TypeItemEdit    = "item_edit"
	TypePortalEdit  = "portal_edit"
	TypeMapSync     = "map_sync"
	TypeTilesSync   = "tiles_sync"
	TypeItemsSync   = "items_sync"
	TypeLevelChange = "level_change"
	TypeListLevels  = "list_levels"
	TypePing        = "ping"
)

// Outbound message types.
const (
	TypeSnapshot   = "snapshot"
	TypeMapFull    = "map_full"
	TypeMapOps     = "map_ops"
	TypeTilesFull  = "tiles_full"
	TypeTileOps    = "tile_ops"
	TypePortalFull = "portal_full"
	TypePortalOps  = "portal_ops"
	TypeItemsFull  = "items_full"
	TypeItemOps    = "item_ops"
	TypeLevels     = "levels"
	TypePong       = "pong"
)

// Edit batch limits. Oversized batches are truncated, never rejected.
const (
	MaxBatchOps = 512
	MaxKeyLen   = 64
)

// BaseMessage lets us route incoming JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	if err == nil && m.Type == "" {
		m.Type = TypeUpdate
	}
	return m, err
}
