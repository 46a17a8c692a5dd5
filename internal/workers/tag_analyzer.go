package workers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/benvon/smart-notes/internal/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TagAnalyzer recomputes a user's per-tag usage counts over their notes and tasks
type TagAnalyzer struct {
	noteRepo     database.NoteRepositoryInterface
	taskRepo     database.TaskRepositoryInterface
	tagStatsRepo database.TagStatisticsRepositoryInterface
	logger       *zap.Logger
	now          func() time.Time
}

// NewTagAnalyzer creates a new tag analyzer
func NewTagAnalyzer(
	noteRepo database.NoteRepositoryInterface,
	taskRepo database.TaskRepositoryInterface,
	tagStatsRepo database.TagStatisticsRepositoryInterface,
	logger *zap.Logger,
) *TagAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TagAnalyzer{
		noteRepo:     noteRepo,
		taskRepo:     taskRepo,
		tagStatsRepo: tagStatsRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// Register adds the analyzer's processor to w.
func (a *TagAnalyzer) Register(w *Worker) {
	w.RegisterProcessor(queue.JobTypeTagStatistics, a.ProcessTagStatisticsJob)
}

// ErrStatisticsChanged is returned when tags changed while an analysis ran.
// The job is retried so the change is not lost.
var ErrStatisticsChanged = errors.New("tag statistics changed during analysis")

// ProcessTagStatisticsJob aggregates and stores the job user's tag statistics.
// On a version conflict the stored record decides: still tainted means a
// write landed mid-analysis and the job retries, clean means a newer
// analysis already stored its result.
func (a *TagAnalyzer) ProcessTagStatisticsJob(ctx context.Context, job *queue.Job) error {
	if job.UserID == uuid.Nil {
		return errors.New("user_id is required for tag statistics job")
	}
	userID := job.UserID.String()
	a.logger.Info("processing_tag_statistics_job",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", userID),
	)

	stats, err := a.tagStatsRepo.GetByUserIDOrCreate(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to get or create tag statistics: %w", err)
	}

	notes, err := a.noteRepo.List(ctx, job.UserID, database.NoteFilter{})
	if err != nil {
		return fmt.Errorf("failed to list notes: %w", err)
	}
	tasks, err := a.taskRepo.List(ctx, job.UserID, database.TaskFilter{})
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	stats.Usage = AggregateTagStats(notes, tasks)
	analyzedAt := a.now().UTC()
	stats.LastAnalyzedAt = &analyzedAt

	updated, err := a.tagStatsRepo.UpdateStatistics(ctx, stats)
	if err != nil {
		return fmt.Errorf("failed to update tag statistics: %w", err)
	}
	if !updated {
		current, err := a.tagStatsRepo.GetByUserID(ctx, job.UserID)
		if err != nil {
			return fmt.Errorf("failed to reload tag statistics: %w", err)
		}
		a.logger.Debug("tag_statistics_version_conflict",
			zap.String("user_id", userID),
			zap.Bool("tainted", current.Tainted),
		)
		if current.Tainted {
			return ErrStatisticsChanged
		}
		return nil
	}

	a.logger.Info("tag_statistics_updated",
		zap.String("user_id", userID),
		zap.Int("notes", len(notes)),
		zap.Int("tasks", len(tasks)),
		zap.Int("unique_tags", len(stats.Usage)),
	)
	a.logTagBreakdownIfDebug(job.UserID, stats.Usage)
	return nil
}

// AggregateTagStats counts each tag's notes, tasks and open tasks. Tag
// names are compared exactly; the store already folds case on write.
func AggregateTagStats(notes []*models.Note, tasks []*models.Task) map[string]models.TagUsage {
	stats := make(map[string]models.TagUsage)
	for _, note := range notes {
		for _, tag := range note.Tags {
			st := stats[tag.Name]
			st.Total++
			st.Notes++
			stats[tag.Name] = st
		}
	}
	for _, task := range tasks {
		for _, tag := range task.Tags {
			st := stats[tag.Name]
			st.Total++
			st.Tasks++
			if task.Status.IsOpen() {
				st.OpenTasks++
			}
			stats[tag.Name] = st
		}
	}
	return stats
}

func (a *TagAnalyzer) logTagBreakdownIfDebug(userID uuid.UUID, tagStats map[string]models.TagUsage) {
	if len(tagStats) == 0 || !a.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	tags := make([]string, 0, len(tagStats))
	for tag := range tagStats {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	a.logger.Debug("tag_breakdown",
		zap.String("user_id", userID.String()),
		zap.Strings("tags", tags),
	)
}
