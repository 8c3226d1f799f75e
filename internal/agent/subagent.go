package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orito-ai/orito-core/internal/kinderr"
	"github.com/orito-ai/orito-core/pkg/models"
)

// SubAgentRequest is the request:spawn payload the orchestrator consumes
// to actually construct and run the sub-agent (spec §4.4, §9 design
// note: "a per-agent mailbox with a request and a response channel keyed
// by request id").
type SubAgentRequest struct {
	RequestID string
	AgentType string
	Task      string
	Input     map[string]any
	Extra     map[string]any
}

// SpawnSubAgent checks the depth/count bounds of spec §3, emits
// request:spawn with a fresh requestId, and blocks until the
// orchestrator calls ResolveSubAgent for that id or the configured
// timeout elapses.
func (r *Runtime) SpawnSubAgent(ctx context.Context, agentType, task string, input, extra map[string]any) (any, error) {
	if !r.CanSpawnSubAgent() {
		return nil, kinderr.New(kinderr.KindAgentLimitReached, fmt.Sprintf("agent %s cannot spawn another %s sub-agent", r.ID, agentType))
	}

	requestID := uuid.NewString()
	ch := make(chan subAgentOutcome, 1)

	r.pendingMu.Lock()
	r.pendingSubAgents[requestID] = ch
	r.pendingMu.Unlock()

	r.mu.Lock()
	r.spawnedSubAgents = append(r.spawnedSubAgents, requestID)
	r.mu.Unlock()

	r.emit(ctx, models.Event{Type: models.EventRequestSpawn, Task: task})
	// The orchestrator services the actual spawn via this in-process
	// request struct, not the event above — the event only establishes
	// the happens-before ordering of spec §4.9.
	r.requestSpawn(SubAgentRequest{RequestID: requestID, AgentType: agentType, Task: task, Input: input, Extra: extra})

	select {
	case o := <-ch:
		r.clearPendingSubAgent(requestID)
		return o.result, o.err
	case <-time.After(r.opts.SubAgentTimeout):
		r.clearPendingSubAgent(requestID)
		return nil, kinderr.New(kinderr.KindPendingRequestTimeout, "timed out waiting for sub-agent result")
	case <-ctx.Done():
		r.clearPendingSubAgent(requestID)
		return nil, ctx.Err()
	}
}

func (r *Runtime) clearPendingSubAgent(requestID string) {
	r.pendingMu.Lock()
	delete(r.pendingSubAgents, requestID)
	r.pendingMu.Unlock()
}

// ResolveSubAgent routes a completed sub-agent's result back to the
// parent's pending SpawnSubAgent call. A no-op for unknown/already
// resolved request ids.
func (r *Runtime) ResolveSubAgent(requestID string, result any, err error) bool {
	r.pendingMu.Lock()
	ch, ok := r.pendingSubAgents[requestID]
	if ok {
		delete(r.pendingSubAgents, requestID)
	}
	r.pendingMu.Unlock()
	if !ok {
		return false
	}
	ch <- subAgentOutcome{result: result, err: err}
	return true
}

// SpawnRequests exposes the channel of outbound sub-agent spawn requests
// this Runtime has queued for the orchestrator to service.
func (r *Runtime) SpawnRequests() <-chan SubAgentRequest {
	return r.spawnRequestCh
}

func (r *Runtime) requestSpawn(req SubAgentRequest) {
	if r.spawnRequestCh != nil {
		r.spawnRequestCh <- req
	}
}
