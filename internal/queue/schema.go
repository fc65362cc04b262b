package queue

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id TEXT NOT NULL,
    language TEXT NOT NULL,
    task_key TEXT NOT NULL UNIQUE,
    job_type TEXT NOT NULL,
    source_url TEXT,
    original_text TEXT,
    working_text TEXT,
    prompt_text TEXT,
    audio_path TEXT,
    caption_path TEXT,
    asset_paths_json TEXT,
    output_path TEXT,
    stages_json TEXT NOT NULL,
    stage_states_json TEXT NOT NULL,
    images_done INTEGER NOT NULL DEFAULT 0,
    images_total INTEGER NOT NULL DEFAULT 0,
    videos_done INTEGER NOT NULL DEFAULT 0,
    videos_total INTEGER NOT NULL DEFAULT 0,
    prompt_attempts INTEGER NOT NULL DEFAULT 0,
    fallback_quick_show INTEGER NOT NULL DEFAULT 0,
    is_reviewed INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_task_key ON tasks(task_key);
`
