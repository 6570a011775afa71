// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package distributed_test

import (
	"testing"

	. "github.com/gomlx/tapir/distributed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(4, 2)
	assert.False(t, cfg.EnableDataParallel, "off by default, the rewrite is opt-in")
	assert.Equal(t, 4, cfg.NumReplicas)
	assert.Equal(t, 2, cfg.Rank)
	assert.Equal(t, DefaultStreamTag, cfg.StreamTag)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	require.Error(t, NewConfig(0, 0).Validate())
	require.Error(t, NewConfig(4, 4).Validate(), "rank out of range")
	require.Error(t, NewConfig(4, -1).Validate())
	require.NoError(t, NewConfig(1, 0).Validate())
}

func TestMesh(t *testing.T) {
	mesh, err := NewConfig(3, 0).Mesh()
	require.NoError(t, err)
	assert.Equal(t, 3, mesh.NumReplicas())
	assert.Equal(t, []string{ReplicaAxisName}, mesh.AxisNames())
	assert.Equal(t, [][]int{{0, 1, 2}}, mesh.ReplicaGroups())

	_, err = NewConfig(4, 7).Mesh()
	require.Error(t, err)

	_, err = NewReplicaMesh(0)
	require.Error(t, err)
}
