package world

// BlockType is the closed enumeration of map-block tags. The zero value is
// the default solid block and is omitted on the wire.
type BlockType int

const (
	BlockNormal BlockType = iota
	BlockHazard
	BlockFence
	BlockHazardFence
	BlockHalfSlab
	BlockPortalSpan
	BlockLock
	BlockNoClimb
)

// NormalizeBlockType maps unrecognized wire tags to the default block rather
// than rejecting the op.
func NormalizeBlockType(tag int) BlockType {
	if tag < int(BlockNormal) || tag > int(BlockNoClimb) {
		return BlockNormal
	}
	return BlockType(tag)
}

// TileLevelChange is the ground-tile override placed at a portal's landing
// cell when the portal has no elevated span to mirror.
const TileLevelChange = 2
