package googleEmbedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/docrag/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))
	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, genai.NewContentFromText(chunk, genai.RoleUser))
	}
	return contentsToSend
}

// doRetry is true for rate limiting, whichever transport reported it.
func doRetry(err error, log *logger_i.Logger) bool {
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		log.Warn("Rate limit hit", "error", err)
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		log.Warn("Rate limit hit", "error", err)
		return true
	}
	return false
}

func (c *Client) getInlinedBatchRequests(chunks []string) *genai.EmbedContentBatch {
	return &genai.EmbedContentBatch{
		Config:   &genai.EmbedContentConfig{OutputDimensionality: &c.dimension, TaskType: taskDocument},
		Contents: getContent(chunks),
	}
}

func (c *Client) pollForAnswer(ctx context.Context, batchJobName string, log *logger_i.Logger) (*genai.BatchJob, error) {
	ticker := time.NewTicker(c.pollPeriod)
	defer ticker.Stop()
	log.Debug("pollForAnswer")
	for {
		select {
		case <-ctx.Done():
			log.Error("pollForAnswer cancelled", "error", ctx.Err())
			return nil, ctx.Err()

		case <-ticker.C:
			bJob, err := c.genAi.Batches.Get(ctx, batchJobName, nil)
			if err != nil {
				log.Warn("Error getting batch job", "error", err)
				continue
			}

			//https://pkg.go.dev/google.golang.org/genai@v1.41.1#JobState
			switch bJob.State {
			case "JOB_STATE_SUCCEEDED":
				log.Debug("batch job succeeded")
				return bJob, nil
			case "JOB_STATE_FAILED", "JOB_STATE_CANCELLED", "JOB_STATE_EXPIRED", "JOB_STATE_PARTIALLY_SUCCEEDED":
				msg := ""
				if bJob.Error != nil {
					msg = bJob.Error.Message
				}
				log.Error("batch job ended", "state", bJob.State, "message", msg)
				return nil, fmt.Errorf("batch job %s ended in state %s %s", batchJobName, bJob.State, msg)
			}
			//all other states we wait for the context to expire or the job to end
		}
	}
}

// downloadAnswerFromClient fails if any single embedding is missing, so a partial batch is never upserted.
func downloadAnswerFromClient(answer *genai.BatchJob, expected int, log *logger_i.Logger) ([][]float32, error) {
	if answer.Dest == nil {
		return nil, errors.New("batch job has no destination")
	}
	res := answer.Dest.InlinedEmbedContentResponses
	if len(res) != expected {
		return nil, fmt.Errorf("batch job returned %d embeddings, expected %d", len(res), expected)
	}

	results := make([][]float32, 0, len(res))
	for i, r := range res {
		if r == nil || r.Error != nil || r.Response == nil || r.Response.Embedding == nil {
			log.Error("Error with a particular result in batch embedding", "index", i)
			return nil, fmt.Errorf("batch embedding %d failed", i)
		}
		results = append(results, r.Response.Embedding.Values)
	}
	return results, nil
}
