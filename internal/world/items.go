package world

import "rabbitwine.gg/mpserver/internal/protocol"

// ItemKind distinguishes pickups that carry a payload string from bare
// position markers.
type ItemKind int

const (
	ItemPayload ItemKind = 0
	ItemMarker  ItemKind = 1
)

// MapItem is one placed pickup. There is no version counter over the item
// list; clients recover from missed broadcasts via items_sync only.
type MapItem struct {
	GX, GY  int
	H       float64
	Kind    ItemKind
	Payload string
}

// SameSignature reports whether two items occupy the same uniqueness slot:
// (gx, gy, kind, payload) for payload items, (gx, gy, kind) for markers.
func (it MapItem) SameSignature(other MapItem) bool {
	if it.GX != other.GX || it.GY != other.GY || it.Kind != other.Kind {
		return false
	}
	if it.Kind == ItemMarker {
		return true
	}
	return it.Payload == other.Payload
}

func itemFromOp(op protocol.ItemOp) MapItem {
	it := MapItem{
		GX:      op.GX,
		GY:      op.GY,
		H:       op.H,
		Kind:    ItemKind(op.Kind),
		Payload: op.Payload,
	}
	if it.Kind != ItemPayload && it.Kind != ItemMarker {
		it.Kind = ItemPayload
	}
	if it.Kind == ItemMarker {
		// Payload is ignored for markers; normalize so signatures and
		// persistence keys agree.
		it.Payload = ""
	}
	return it
}

func (it MapItem) toOp(verb string) protocol.ItemOp {
	return protocol.ItemOp{
		Op:      verb,
		GX:      it.GX,
		GY:      it.GY,
		H:       it.H,
		Kind:    int(it.Kind),
		Payload: it.Payload,
	}
}

func (it MapItem) Wire() protocol.ItemWire {
	return protocol.ItemWire{
		GX:      it.GX,
		GY:      it.GY,
		H:       it.H,
		Kind:    int(it.Kind),
		Payload: it.Payload,
	}
}

// ApplyItemOps applies an item batch to the level: an add replaces the item
// occupying the same signature slot or appends; a remove deletes every match.
// Returns the accepted ops for broadcast, and the items that changed so the
// caller can persist them.
func (l *Level) ApplyItemOps(ops []protocol.ItemOp) (accepted []protocol.ItemOp, upserts, deletes []MapItem) {
	for _, op := range ops {
		it := itemFromOp(op)
		if op.Op == protocol.OpRemove {
			kept := l.Items[:0]
			removed := false
			for _, cur := range l.Items {
				if cur.SameSignature(it) {
					removed = true
					continue
				}
				kept = append(kept, cur)
			}
			l.Items = kept
			if removed {
				accepted = append(accepted, it.toOp(protocol.OpRemove))
				deletes = append(deletes, it)
			}
			continue
		}
		replaced := false
		for i, cur := range l.Items {
			if cur.SameSignature(it) {
				l.Items[i] = it
				replaced = true
				break
			}
		}
		if !replaced {
			l.Items = append(l.Items, it)
		}
		accepted = append(accepted, it.toOp(protocol.OpAdd))
		upserts = append(upserts, it)
	}
	return accepted, upserts, deletes
}
