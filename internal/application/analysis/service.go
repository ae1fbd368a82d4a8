package analysis

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fixedyet/fixedyet/internal/application"
	appprogress "github.com/fixedyet/fixedyet/internal/application/progress"
	"github.com/fixedyet/fixedyet/internal/infra/cache"

	domain "github.com/fixedyet/fixedyet/internal/domain/analysis"
	domainprogress "github.com/fixedyet/fixedyet/internal/domain/progress"
)

// Service implements the analysis use-cases. It is designed to be used
// concurrently: each request's workflow runs independently and never blocks
// other in-flight requests.
type Service struct {
	Git       domain.GitClient
	AI        domain.Completer
	Cache     *cache.Service
	Requests  domain.RequestRepository
	Progress  domainprogress.Repository
	Artifacts domain.ArtifactStore // optional
	Clock     application.Clock
	SDKs      domain.SDKRegistry
	Shards    ShardConfig
	Weights   CombineConfig
	Steps     []appprogress.Step
}

// Command to run an analysis
type Command struct {
	RequestID   string
	SDK         string
	Version     string
	Description string
}

// RunResult is the caller-facing outcome of one analysis.
type RunResult struct {
	RequestID  domain.RequestID     `json:"request_id,omitempty"`
	Status     domain.Status        `json:"status"`
	Confidence int                  `json:"confidence"`
	Summary    string               `json:"summary"`
	PRs        []domain.PullRequest `json:"prs"`
	FromCache  bool                 `json:"from_cache"`
}

// analysisKey is the cache key parameter set for combined results. Requests
// with identical fields may race to write the same entry; both writers
// produce semantically equivalent results, so last-write-wins is fine.
type analysisKey struct {
	SDK         string `json:"sdk"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// RunAnalysis executes the end-to-end workflow: cache check, keyword
// extraction, tag/commit retrieval, sharded commit analysis, PR retrieval
// and analysis, result combination, persistence. Phases execute strictly in
// this sequence within one request.
func (s *Service) RunAnalysis(ctx context.Context, cmd Command) (*RunResult, error) {
	repo := s.SDKs.RepoFor(cmd.SDK)
	if repo == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedSDK, cmd.SDK)
	}

	key := analysisKey{SDK: cmd.SDK, Version: cmd.Version, Description: cmd.Description}
	var cached domain.CombinedResult
	if s.Cache.Get(ctx, cache.NamespaceAnalysis, key, &cached) {
		// no request or progress rows for cached results
		return &RunResult{
			Status:     cached.Status,
			Confidence: cached.Confidence,
			Summary:    cached.Summary,
			PRs:        cached.PRs,
			FromCache:  true,
		}, nil
	}

	req := &domain.Request{
		ID:          domain.RequestID(cmd.RequestID),
		SDK:         cmd.SDK,
		Version:     cmd.Version,
		Description: cmd.Description,
		CreatedAt:   s.Clock.Now(),
	}
	if err := s.Requests.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("storing request: %w", err)
	}

	tracker := appprogress.NewTracker(s.Progress, cmd.RequestID, s.Steps, s.Clock)
	tracker.Initialize(ctx)

	combined, err := s.perform(ctx, tracker, repo, cmd)
	if err != nil {
		tracker.Fail(ctx, err.Error(), 0)
		return nil, err
	}
	tracker.Complete(ctx)

	result := &domain.Result{
		RequestID:  req.ID,
		Status:     combined.Status,
		Confidence: combined.Confidence,
		Summary:    combined.Summary,
		PRs:        combined.PRs,
		CreatedAt:  s.Clock.Now(),
	}
	if err := s.Requests.SaveResult(ctx, result); err != nil {
		// final-result persistence is best-effort; the caller still gets
		// the combined result
		log.Printf("analysis: storing result for %s failed: %v", req.ID, err)
	}

	s.Cache.Set(ctx, cache.NamespaceAnalysis, key, combined, 0)

	return &RunResult{
		RequestID:  req.ID,
		Status:     combined.Status,
		Confidence: combined.Confidence,
		Summary:    combined.Summary,
		PRs:        combined.PRs,
	}, nil
}

// perform runs the six analysis steps with progress tracking.
func (s *Service) perform(ctx context.Context, tracker *appprogress.Tracker, repo string, cmd Command) (*domain.CombinedResult, error) {
	steps := tracker.Steps()
	extractor := NewKeywordExtractor(s.AI)
	analyzer := NewAnalyzer(s.AI, s.Shards)
	combiner := NewCombiner(s.AI, s.Weights)

	// Step 1: keyword extraction
	tracker.UpdateStep(ctx, steps[0].Step, steps[0].Title, steps[0].Description)
	keywords := extractor.Extract(ctx, cmd.Description)
	tracker.UpdateStepWithData(ctx, steps[0].Step, steps[0].Title,
		"AI extracted search keywords from your issue description",
		appprogress.StepData{Keywords: keywords})

	// Step 2: tag/release retrieval. Tags are essential; failure escalates.
	tracker.UpdateStep(ctx, steps[1].Step, steps[1].Title, steps[1].Description)
	var tags []domain.Tag
	if !s.Cache.Get(ctx, cache.NamespaceTags, map[string]string{"repo": repo}, &tags) {
		var err error
		tags, err = s.Git.ListTags(ctx, repo)
		if err != nil {
			return nil, err
		}
		s.Cache.Set(ctx, cache.NamespaceTags, map[string]string{"repo": repo}, tags, 0)
	}
	tracker.UpdateStepWithData(ctx, steps[1].Step, steps[1].Title,
		"Fetched all available releases and version information",
		appprogress.StepData{Count: appprogress.Count(len(tags))})

	// Step 3: commit search since the user's version
	tracker.UpdateStep(ctx, steps[2].Step, steps[2].Title, steps[2].Description)
	since, err := s.Git.ResolveVersionDate(ctx, repo, cmd.Version)
	if err != nil {
		return nil, err
	}
	commitsKey := struct {
		Repo     string   `json:"repo"`
		From     string   `json:"from"`
		Keywords []string `json:"keywords"`
	}{repo, cmd.Version, keywords}
	var commits []domain.Commit
	if !s.Cache.Get(ctx, cache.NamespaceCommits, commitsKey, &commits) {
		commits, err = s.Git.CommitsSince(ctx, repo, since, keywords)
		if err != nil {
			return nil, err
		}
		if len(commits) == 0 && len(keywords) > 0 {
			// the narrowed listing found nothing; the search index matches
			// keywords across the full message body and sometimes does better
			found, serr := s.Git.SearchCommits(ctx, repo, strings.Join(keywords, " "))
			if serr != nil {
				return nil, serr
			}
			commits = commitsAfter(found, since)
		}
		s.Cache.Set(ctx, cache.NamespaceCommits, commitsKey, commits, 0)
	}
	tracker.UpdateStepWithData(ctx, steps[2].Step, steps[2].Title,
		"Searched repository history for relevant changes",
		appprogress.StepData{Count: appprogress.Count(len(commits))})

	// Step 4: sharded commit analysis
	tracker.UpdateStep(ctx, steps[3].Step, steps[3].Title, steps[3].Description)
	commitVerdict := analyzer.AnalyzeCommits(ctx, cmd.Description, commits)
	tracker.UpdateStepWithData(ctx, steps[3].Step, steps[3].Title,
		"AI evaluated commit messages for potential fixes",
		appprogress.StepData{
			Count: appprogress.Count(len(commitVerdict.RelevantIDs)),
			Total: appprogress.Count(len(commits)),
		})

	if commitVerdict.Status == domain.StatusNotFixed && len(commitVerdict.RelevantIDs) == 0 {
		// nothing points at a fix; bail out before spending PR quota
		return &domain.CombinedResult{
			Status:     commitVerdict.Status,
			Confidence: commitVerdict.Confidence,
			Summary:    commitVerdict.Reasoning,
			PRs:        []domain.PullRequest{},
		}, nil
	}

	// Step 5: PR retrieval (cached per PR) and sharded PR analysis
	tracker.UpdateStep(ctx, steps[4].Step, steps[4].Title, steps[4].Description)
	relevantCommits := filterCommitsBySHA(commits, commitVerdict.RelevantIDs)
	prNumbers := s.Git.ExtractPRNumbers(relevantCommits)

	prs := make([]domain.PullRequest, 0, len(prNumbers))
	for _, number := range prNumbers {
		prKey := struct {
			Repo   string `json:"repo"`
			Number int    `json:"number"`
		}{repo, number}
		var pr *domain.PullRequest
		if !s.Cache.Get(ctx, cache.NamespacePRs, prKey, &pr) {
			pr, err = s.Git.GetPullRequest(ctx, repo, number)
			if err != nil {
				return nil, err
			}
			if pr != nil {
				s.Cache.Set(ctx, cache.NamespacePRs, prKey, pr, 0)
			}
		}
		if pr != nil {
			prs = append(prs, *pr)
		}
	}

	prVerdict := analyzer.AnalyzePullRequests(ctx, cmd.Description, prs)
	tracker.UpdateStepWithData(ctx, steps[4].Step, steps[4].Title,
		"Fetched and analyzed pull requests for relevant fixes",
		appprogress.StepData{
			Count: appprogress.Count(len(prVerdict.RelevantIDs)),
			Total: appprogress.Count(len(prs)),
		})

	// Step 6: combination
	tracker.UpdateStep(ctx, steps[5].Step, steps[5].Title, steps[5].Description)
	combined := combiner.Combine(ctx, commitVerdict, prVerdict, prs)

	s.saveArtifact(ctx, cmd, commitVerdict, prVerdict, &combined)

	return &combined, nil
}

// saveArtifact uploads the raw reasoning bundle for audit. Best-effort.
func (s *Service) saveArtifact(ctx context.Context, cmd Command, commitV, prV domain.Verdict, combined *domain.CombinedResult) {
	if s.Artifacts == nil {
		return
	}
	payload := map[string]any{
		"request_id":     cmd.RequestID,
		"sdk":            cmd.SDK,
		"version":        cmd.Version,
		"commit_verdict": commitV,
		"pr_verdict":     prV,
		"combined":       combined,
	}
	url, err := s.Artifacts.SaveAnalysisArtifact(ctx, domain.RequestID(cmd.RequestID), payload)
	if err != nil {
		log.Printf("analysis: artifact upload for %s failed: %v", cmd.RequestID, err)
		return
	}
	log.Printf("analysis: artifact stored at %s", url)
}

// GetProgress returns the live progress record for polling; nil when the
// request is unknown. Never mutates.
func (s *Service) GetProgress(ctx context.Context, requestID string) (*domainprogress.Record, error) {
	return s.Progress.Get(ctx, requestID)
}

// History returns the latest analyses with their results.
func (s *Service) History(ctx context.Context, limit int) ([]*domain.HistoryEntry, error) {
	return s.Requests.History(ctx, limit)
}

// commitsAfter keeps commits authored after since. Search results without an
// author date are kept; dropping them would hide data the index did match.
func commitsAfter(commits []domain.Commit, since time.Time) []domain.Commit {
	var out []domain.Commit
	for _, c := range commits {
		if c.AuthoredAt.IsZero() || c.AuthoredAt.After(since) {
			out = append(out, c)
		}
	}
	return out
}

func filterCommitsBySHA(commits []domain.Commit, shas []string) []domain.Commit {
	wanted := make(map[string]bool, len(shas))
	for _, sha := range shas {
		wanted[sha] = true
	}
	var out []domain.Commit
	for _, c := range commits {
		if wanted[c.SHA] {
			out = append(out, c)
		}
	}
	return out
}
