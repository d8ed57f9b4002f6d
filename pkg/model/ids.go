package model

import "strconv"

// ENodeId is a monotonically allocated identifier for an e-node. Ids are
// never recycled.
type ENodeId int64

// String renders the id for use in canonical keys and diagnostics.
func (id ENodeId) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// EClassId is definitionally the canonical ENodeId of the class: the id of
// any node currently in the class, as returned by find.
type EClassId = ENodeId

// InvalidId is returned by lookups that found nothing; it is never a valid
// allocated id.
const InvalidId ENodeId = -1
