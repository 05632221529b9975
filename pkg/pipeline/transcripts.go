package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/corpus"
	"github.com/papercomputeco/scholar/pkg/grounding"
	"github.com/papercomputeco/scholar/pkg/llm"
	"github.com/papercomputeco/scholar/pkg/transcript"
	"github.com/papercomputeco/scholar/pkg/utils"
)

// AnalysisQuery is the fixed retrieval query for transcript analysis.
const AnalysisQuery = "Analyze video"

// FetchFailedMessage is the answer of an analysis whose captions could not be read.
const FetchFailedMessage = "Could not fetch subtitles, or the video ID is invalid."

const comparePrompt = `Compare the Video Transcript with the Syllabus Context.
1. Summarize the parts of the video that match the syllabus.
2. If the video is unrelated, say 'Video content is not in the syllabus'.`

// AnalysisStatus is the outcome of a transcript analysis.
type AnalysisStatus string

const (
	AnalysisCompleted   AnalysisStatus = "analyzed"
	AnalysisFetchFailed AnalysisStatus = "fetch_failed"
)

// TranscriptAnalysis is the explicit result of Analyze. A failed caption
// fetch is a result, not an error.
type TranscriptAnalysis struct {
	VideoID string         `json:"video_id,omitempty"`
	Status  AnalysisStatus `json:"status"`
	Answer  string         `json:"answer"`

	// Reason describes a fetch failure.
	Reason string `json:"reason,omitempty"`
}

// Transcripts cross-references video captions with the corpus.
type Transcripts struct {
	cfg Config
}

// NewTranscripts creates a transcript analyzer.
func NewTranscripts(cfg Config) *Transcripts {
	return &Transcripts{cfg: cfg.withDefaults()}
}

// Analyze fetches the captions of the video at rawURL and asks the model to
// summarize what overlaps with the corpus.
func (t *Transcripts) Analyze(ctx context.Context, rawURL string) (*TranscriptAnalysis, error) {
	if !t.cfg.Corpus.IsLoaded() {
		return nil, corpus.ErrNotLoaded
	}

	videoID, err := transcript.ParseVideoID(rawURL)
	if err != nil {
		return t.fetchFailed("", err), nil
	}

	segments, err := t.cfg.Fetcher.Fetch(ctx, videoID)
	if err != nil {
		if !errors.Is(err, transcript.ErrFetch) {
			err = fmt.Errorf("%w: %w", transcript.ErrFetch, err)
		}
		return t.fetchFailed(videoID, err), nil
	}

	text := utils.Prefix(transcript.Join(segments), t.cfg.TranscriptPrefixChars)

	passages, err := t.cfg.Retriever.Retrieve(ctx, AnalysisQuery)
	if err != nil {
		return nil, err
	}

	out, err := t.cfg.Completer.Complete(ctx, llm.CompletionRequest{
		System: comparePrompt,
		Messages: []llm.Message{
			llm.UserMessage("Video: " + text),
			llm.UserMessage("Syllabus: " + grounding.JoinPassages(passages)),
		},
		Temperature: t.cfg.GroundedTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzing transcript: %w", err)
	}

	return &TranscriptAnalysis{
		VideoID: videoID,
		Status:  AnalysisCompleted,
		Answer:  grounding.Scrub(out),
	}, nil
}

func (t *Transcripts) fetchFailed(videoID string, err error) *TranscriptAnalysis {
	t.cfg.Logger.Warn("transcript fetch failed",
		zap.String("video_id", videoID),
		zap.Error(err),
	)
	return &TranscriptAnalysis{
		VideoID: videoID,
		Status:  AnalysisFetchFailed,
		Answer:  FetchFailedMessage,
		Reason:  err.Error(),
	}
}
