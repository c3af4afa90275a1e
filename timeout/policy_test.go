// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	assert.Equal(t, 60*time.Second, DefaultPolicy.Timeout(Connect))
	assert.Equal(t, 30*time.Second, DefaultPolicy.Timeout(Send))
	assert.Equal(t, 30*time.Second, DefaultPolicy.Timeout(Receive))
}

func TestInfinite(t *testing.T) {
	assert.Equal(t, time.Duration(math.MaxInt64), Infinite.Timeout(Connect))
	assert.Equal(t, time.Duration(math.MaxInt64), Infinite.Timeout(Receive))
}

func TestFixed(t *testing.T) {
	p := Fixed(33 * time.Hour)
	assert.Equal(t, 33*time.Hour, p.Timeout(Connect))
	assert.Equal(t, 33*time.Hour, p.Timeout(Send))
	assert.Equal(t, 33*time.Hour, p.Timeout(Receive))
}

func TestStages(t *testing.T) {
	p := Stages(time.Second, 2*time.Second, 3*time.Second)
	assert.Equal(t, time.Second, p.Timeout(Connect))
	assert.Equal(t, 2*time.Second, p.Timeout(Send))
	assert.Equal(t, 3*time.Second, p.Timeout(Receive))
}

func TestStage_String(t *testing.T) {
	assert.Len(t, stageNames, numStages)
	assert.Equal(t, "Connect", Connect.String())
	assert.Equal(t, "Send", Send.String())
	assert.Equal(t, "Receive", Receive.String())
}

func TestDeadline(t *testing.T) {
	now := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, now.Add(time.Second), Deadline(Fixed(time.Second), Send, now))
	assert.True(t, Deadline(Infinite, Send, now).IsZero())
	assert.True(t, Deadline(Fixed(0), Receive, now).IsZero())
	assert.True(t, Deadline(Fixed(-time.Second), Receive, now).IsZero())
}
