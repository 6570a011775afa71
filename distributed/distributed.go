// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package distributed holds the configuration consumed by the data-parallel
// rewrite pass and a minimal replica-mesh description for the external
// executor that runs the emitted collective operations.
package distributed

import (
	"fmt"

	"github.com/pkg/errors"
)

// DefaultStreamTag is the stream-tag constant the rewrite pass passes to the
// stream-sync operator when the config doesn't override it. The executor
// uses it to pick the device stream the collectives were issued on.
const DefaultStreamTag = 5

// Config describes the distributed setup of one replica.
//
// Only EnableDataParallel and StreamTag affect the rewrite pass itself;
// NumReplicas and Rank are informational for the executor (the emitted IR is
// the same program on every replica).
type Config struct {
	// EnableDataParallel turns the gradient-synchronization rewrite on.
	EnableDataParallel bool

	// NumReplicas is the number of cooperating replicas.
	NumReplicas int

	// Rank of this replica, in [0, NumReplicas).
	Rank int

	// StreamTag is the integer tag emitted with the stream-sync operator.
	StreamTag int
}

// NewConfig creates a Config for the given replica, with data parallelism
// disabled and the default stream tag.
func NewConfig(numReplicas, rank int) *Config {
	return &Config{
		NumReplicas: numReplicas,
		Rank:        rank,
		StreamTag:   DefaultStreamTag,
	}
}

// Validate checks the replica count and rank.
func (c *Config) Validate() error {
	if c.NumReplicas < 1 {
		return errors.Errorf("distributed.Config: NumReplicas must be >= 1, got %d", c.NumReplicas)
	}
	if c.Rank < 0 || c.Rank >= c.NumReplicas {
		return errors.Errorf("distributed.Config: Rank must be in [0, %d), got %d", c.NumReplicas, c.Rank)
	}
	return nil
}

// Mesh returns the 1-D replica mesh for this configuration.
func (c *Config) Mesh() (*ReplicaMesh, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return NewReplicaMesh(c.NumReplicas)
}

// String implements fmt.Stringer.
func (c *Config) String() string {
	return fmt.Sprintf("distributed.Config{DataParallel: %v, Replica: %d of %d, StreamTag: %d}",
		c.EnableDataParallel, c.Rank, c.NumReplicas, c.StreamTag)
}

// ReplicaMesh is the logical topology the emitted all-reduce operations run
// over: a single named axis with one position per replica. The executor maps
// positions to physical devices.
type ReplicaMesh struct {
	axisName    string
	numReplicas int
}

// ReplicaAxisName is the name of the single axis of a ReplicaMesh.
const ReplicaAxisName = "replica"

// NewReplicaMesh creates a 1-D mesh with the given number of replicas.
func NewReplicaMesh(numReplicas int) (*ReplicaMesh, error) {
	if numReplicas < 1 {
		return nil, errors.Errorf("NewReplicaMesh: numReplicas must be >= 1, got %d", numReplicas)
	}
	return &ReplicaMesh{axisName: ReplicaAxisName, numReplicas: numReplicas}, nil
}

// AxisNames returns the mesh axis names -- always one axis here.
func (m *ReplicaMesh) AxisNames() []string { return []string{m.axisName} }

// NumReplicas returns the number of positions along the replica axis.
func (m *ReplicaMesh) NumReplicas() int { return m.numReplicas }

// ReplicaGroups returns the groups of replicas that participate together in
// each collective: for pure data parallelism that is one group holding every
// replica.
func (m *ReplicaMesh) ReplicaGroups() [][]int {
	group := make([]int, m.numReplicas)
	for i := range group {
		group[i] = i
	}
	return [][]int{group}
}

// String implements fmt.Stringer.
func (m *ReplicaMesh) String() string {
	return fmt.Sprintf("ReplicaMesh{%s: %d}", m.axisName, m.numReplicas)
}
