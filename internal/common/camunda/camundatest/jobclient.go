// Package camundatest provides an in-memory worker.JobClient that records the
// complete, fail and throw-error commands a handler sends.
package camundatest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"google.golang.org/grpc"
)

type gateway struct {
	pb.GatewayClient

	mu        sync.Mutex
	completed []*pb.CompleteJobRequest
	failed    []*pb.FailJobRequest
	thrown    []*pb.ThrowErrorRequest
}

func (g *gateway) CompleteJob(_ context.Context, in *pb.CompleteJobRequest, _ ...grpc.CallOption) (*pb.CompleteJobResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed = append(g.completed, in)
	return &pb.CompleteJobResponse{}, nil
}

func (g *gateway) FailJob(_ context.Context, in *pb.FailJobRequest, _ ...grpc.CallOption) (*pb.FailJobResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failed = append(g.failed, in)
	return &pb.FailJobResponse{}, nil
}

func (g *gateway) ThrowError(_ context.Context, in *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.thrown = append(g.thrown, in)
	return &pb.ThrowErrorResponse{}, nil
}

// JobClient satisfies worker.JobClient.
type JobClient struct {
	gw *gateway
}

func NewJobClient() *JobClient {
	return &JobClient{gw: &gateway{}}
}

func noRetry(context.Context, error) bool { return false }

func (c *JobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c.gw, noRetry)
}

func (c *JobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c.gw, noRetry)
}

func (c *JobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c.gw, noRetry)
}

// Completed decodes the variables of the i-th complete command into dst.
func (c *JobClient) Completed(i int, dst interface{}) bool {
	c.gw.mu.Lock()
	defer c.gw.mu.Unlock()
	if i >= len(c.gw.completed) {
		return false
	}
	return json.Unmarshal([]byte(c.gw.completed[i].Variables), dst) == nil
}

func (c *JobClient) CompletedCount() int {
	c.gw.mu.Lock()
	defer c.gw.mu.Unlock()
	return len(c.gw.completed)
}

func (c *JobClient) Failed() []*pb.FailJobRequest {
	c.gw.mu.Lock()
	defer c.gw.mu.Unlock()
	return append([]*pb.FailJobRequest(nil), c.gw.failed...)
}

func (c *JobClient) Thrown() []*pb.ThrowErrorRequest {
	c.gw.mu.Lock()
	defer c.gw.mu.Unlock()
	return append([]*pb.ThrowErrorRequest(nil), c.gw.thrown...)
}

// Job builds an activated job carrying vars as its variables document.
func Job(taskType string, vars interface{}) entities.Job {
	var raw string
	switch v := vars.(type) {
	case string:
		raw = v
	default:
		b, _ := json.Marshal(v)
		raw = string(b)
	}
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                1,
		Type:               taskType,
		ProcessInstanceKey: 100,
		Retries:            3,
		Variables:          raw,
	}}
}
