package transform

import (
	"fmt"
	"sync/atomic"

	"github.com/bwmarrin/snowflake"
)

// IDGenerator hands out songplay ids. Successive calls return strictly
// increasing values.
type IDGenerator interface {
	Next() int64
}

// SnowflakeIDs issues time-ordered 63-bit ids from one snowflake node.
type SnowflakeIDs struct {
	node *snowflake.Node
}

func NewSnowflakeIDs(nodeID int64) (*SnowflakeIDs, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}
	return &SnowflakeIDs{node: node}, nil
}

func (g *SnowflakeIDs) Next() int64 {
	return g.node.Generate().Int64()
}

// SequenceIDs counts up from 1. Handy where output must be reproducible.
type SequenceIDs struct {
	n atomic.Int64
}

func (g *SequenceIDs) Next() int64 {
	return g.n.Add(1)
}
