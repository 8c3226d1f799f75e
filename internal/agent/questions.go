package agent

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/orito-ai/orito-core/internal/kinderr"
	"github.com/orito-ai/orito-core/pkg/models"
)

// AskUserQuestions emits one agent:question event per question, each with
// a fresh questionId, then waits for every answer to arrive via
// ResolveUserAnswer (spec §4.4). It returns the answers in the same order
// as questions, or a PendingRequestTimeout error once opts.QuestionTimeout
// elapses for any one of them — whichever question times out first aborts
// the whole call and every still-pending entry for this call is removed
// (spec §3 invariant: "no zombie entries").
func (r *Runtime) AskUserQuestions(ctx context.Context, questions []models.Question) ([]string, error) {
	ids := make([]string, len(questions))
	chans := make([]chan string, len(questions))

	for i, q := range questions {
		id := uuid.NewString()
		ids[i] = id
		ch := make(chan string, 1)

		r.pendingMu.Lock()
		r.pendingQuestions[id] = ch
		r.pendingMu.Unlock()
		chans[i] = ch

		r.emit(ctx, models.Event{
			Type:        models.EventAgentQuestion,
			QuestionID:  id,
			Question:    q.Question,
			Header:      q.Header,
			Purpose:     q.Purpose,
			Options:     q.Options,
			Multiple:    q.Multiple,
			AllowCustom: q.AllowCustom,
		})
	}

	answers := make([]string, len(questions))
	for i, ch := range chans {
		select {
		case answer := <-ch:
			answers[i] = answer
		case <-time.After(r.opts.QuestionTimeout):
			r.clearPendingQuestions(ids)
			return nil, kinderr.New(kinderr.KindPendingRequestTimeout, "timed out waiting for an answer to a question")
		case <-ctx.Done():
			r.clearPendingQuestions(ids)
			return nil, ctx.Err()
		}
	}
	r.clearPendingQuestions(ids)
	return answers, nil
}

func (r *Runtime) clearPendingQuestions(ids []string) {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	for _, id := range ids {
		delete(r.pendingQuestions, id)
	}
}

// ResolveUserAnswer routes an inbound {type: answer, questionId, answer}
// session message (spec §6.5) to the pending question it answers. It is a
// no-op if questionId is unknown (already resolved, rejected, or timed
// out) so late/duplicate answers never panic.
func (r *Runtime) ResolveUserAnswer(questionID, answer string) bool {
	r.pendingMu.Lock()
	ch, ok := r.pendingQuestions[questionID]
	if ok {
		delete(r.pendingQuestions, questionID)
	}
	r.pendingMu.Unlock()
	if !ok {
		return false
	}
	ch <- answer
	return true
}
