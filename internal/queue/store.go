package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"reelsmith/internal/config"
)

// Store manages task persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the task database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "tasks.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Insert persists a new task and fills its ID and timestamps.
func (s *Store) Insert(ctx context.Context, task *Task) error {
	if task == nil {
		return errors.New("task is nil")
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	stagesJSON, statesJSON, assetsJSON, err := marshalTask(task)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO tasks (
            job_id, language, task_key, job_type, source_url, original_text,
            working_text, prompt_text, audio_path, caption_path,
            asset_paths_json, output_path, stages_json, stage_states_json,
            images_done, images_total, videos_done, videos_total,
            prompt_attempts, fallback_quick_show, is_reviewed,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.JobID,
		task.Language,
		task.TaskKey,
		string(task.JobType),
		nullableString(task.SourceURL),
		nullableString(task.OriginalText),
		nullableString(task.WorkingText),
		nullableString(task.PromptText),
		nullableString(task.AudioPath),
		nullableString(task.CaptionPath),
		nullableString(assetsJSON),
		nullableString(task.OutputPath),
		stagesJSON,
		statesJSON,
		task.ImagesDone,
		task.ImagesTotal,
		task.VideosDone,
		task.VideosTotal,
		task.PromptAttempts,
		boolToInt(task.FallbackQuickShow),
		boolToInt(task.IsReviewed),
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	task.ID = id
	return nil
}

// Update persists changes to an existing task.
func (s *Store) Update(ctx context.Context, task *Task) error {
	if task == nil {
		return errors.New("task is nil")
	}
	task.UpdatedAt = time.Now().UTC()

	stagesJSON, statesJSON, assetsJSON, err := marshalTask(task)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE tasks
         SET job_id = ?, language = ?, task_key = ?, job_type = ?, source_url = ?,
             original_text = ?, working_text = ?, prompt_text = ?, audio_path = ?,
             caption_path = ?, asset_paths_json = ?, output_path = ?,
             stages_json = ?, stage_states_json = ?, images_done = ?,
             images_total = ?, videos_done = ?, videos_total = ?,
             prompt_attempts = ?, fallback_quick_show = ?, is_reviewed = ?,
             updated_at = ?
         WHERE id = ?`,
		task.JobID,
		task.Language,
		task.TaskKey,
		string(task.JobType),
		nullableString(task.SourceURL),
		nullableString(task.OriginalText),
		nullableString(task.WorkingText),
		nullableString(task.PromptText),
		nullableString(task.AudioPath),
		nullableString(task.CaptionPath),
		nullableString(assetsJSON),
		nullableString(task.OutputPath),
		stagesJSON,
		statesJSON,
		task.ImagesDone,
		task.ImagesTotal,
		task.VideosDone,
		task.VideosTotal,
		task.PromptAttempts,
		boolToInt(task.FallbackQuickShow),
		boolToInt(task.IsReviewed),
		task.UpdatedAt.Format(time.RFC3339Nano),
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// GetByID fetches a task by identifier; returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// GetByKey fetches a task by its composite job × language key.
func (s *Store) GetByKey(ctx context.Context, key string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE task_key = ?`, key)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task by key: %w", err)
	}
	return task, nil
}

// List returns all tasks ordered by creation time.
func (s *Store) List(ctx context.Context) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Unfinished returns tasks that still have non-terminal stages, oldest first.
// Used on daemon startup to resume interrupted work.
func (s *Store) Unfinished(ctx context.Context) ([]*Task, error) {
	tasks, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	unfinished := tasks[:0]
	for _, task := range tasks {
		if !task.Complete() {
			// In-flight statuses from a previous run restart as pending.
			for stage, state := range task.StageStates {
				if state.Status == StatusProcessing || state.Status == StatusProcessingVideo {
					task.SetStage(stage, StatusPending, "")
				}
			}
			unfinished = append(unfinished, task)
		}
	}
	return unfinished, nil
}

// RetryErrored resets errored stages of a task back to pending.
func (s *Store) RetryErrored(ctx context.Context, id int64) (*Task, error) {
	task, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %d not found", id)
	}
	for stage, state := range task.StageStates {
		if state.Status == StatusError {
			task.SetStage(stage, StatusPending, "")
		}
	}
	if err := s.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Remove deletes a task by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes tasks whose stages all reached a terminal state.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	tasks, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	var removed int64
	for _, task := range tasks {
		if !task.Complete() {
			continue
		}
		ok, err := s.Remove(ctx, task.ID)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// Health aggregates task state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	tasks, err := s.List(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{Total: len(tasks)}
	for _, task := range tasks {
		switch task.SummaryStatus() {
		case "pending":
			health.Pending++
		case "processing":
			health.Processing++
		case "review_required":
			health.Review++
		case "error":
			health.Failed++
		default:
			health.Completed++
		}
	}
	return health, nil
}

const taskColumns = `id, job_id, language, task_key, job_type, source_url,
    original_text, working_text, prompt_text, audio_path, caption_path,
    asset_paths_json, output_path, stages_json, stage_states_json,
    images_done, images_total, videos_done, videos_total, prompt_attempts,
    fallback_quick_show, is_reviewed, created_at, updated_at`

func marshalTask(task *Task) (stagesJSON, statesJSON, assetsJSON string, err error) {
	stages, err := json.Marshal(task.Stages)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal stages: %w", err)
	}
	states, err := json.Marshal(task.StageStates)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal stage states: %w", err)
	}
	assets := ""
	if len(task.AssetPaths) > 0 {
		raw, err := json.Marshal(task.AssetPaths)
		if err != nil {
			return "", "", "", fmt.Errorf("marshal asset paths: %w", err)
		}
		assets = string(raw)
	}
	return string(stages), string(states), assets, nil
}

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		id                int64
		jobID             string
		language          string
		taskKey           string
		jobType           string
		sourceURL         sql.NullString
		originalText      sql.NullString
		workingText       sql.NullString
		promptText        sql.NullString
		audioPath         sql.NullString
		captionPath       sql.NullString
		assetsJSON        sql.NullString
		outputPath        sql.NullString
		stagesJSON        string
		statesJSON        string
		imagesDone        int
		imagesTotal       int
		videosDone        int
		videosTotal       int
		promptAttempts    int
		fallbackQuickShow sql.NullInt64
		isReviewed        sql.NullInt64
		createdRaw        string
		updatedRaw        string
	)

	if err := scanner.Scan(
		&id, &jobID, &language, &taskKey, &jobType, &sourceURL,
		&originalText, &workingText, &promptText, &audioPath, &captionPath,
		&assetsJSON, &outputPath, &stagesJSON, &statesJSON,
		&imagesDone, &imagesTotal, &videosDone, &videosTotal, &promptAttempts,
		&fallbackQuickShow, &isReviewed, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	task := &Task{
		ID:             id,
		JobID:          jobID,
		Language:       language,
		TaskKey:        taskKey,
		JobType:        JobType(jobType),
		SourceURL:      sourceURL.String,
		OriginalText:   originalText.String,
		WorkingText:    workingText.String,
		PromptText:     promptText.String,
		AudioPath:      audioPath.String,
		CaptionPath:    captionPath.String,
		OutputPath:     outputPath.String,
		ImagesDone:     imagesDone,
		ImagesTotal:    imagesTotal,
		VideosDone:     videosDone,
		VideosTotal:    videosTotal,
		PromptAttempts: promptAttempts,
	}
	if fallbackQuickShow.Valid {
		task.FallbackQuickShow = fallbackQuickShow.Int64 != 0
	}
	if isReviewed.Valid {
		task.IsReviewed = isReviewed.Int64 != 0
	}

	if err := json.Unmarshal([]byte(stagesJSON), &task.Stages); err != nil {
		return nil, fmt.Errorf("unmarshal stages: %w", err)
	}
	if err := json.Unmarshal([]byte(statesJSON), &task.StageStates); err != nil {
		return nil, fmt.Errorf("unmarshal stage states: %w", err)
	}
	if assetsJSON.Valid && assetsJSON.String != "" {
		if err := json.Unmarshal([]byte(assetsJSON.String), &task.AssetPaths); err != nil {
			return nil, fmt.Errorf("unmarshal asset paths: %w", err)
		}
	}

	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		task.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		task.UpdatedAt = updated
	}
	return task, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
