package config

import (
	"os"
	"strconv"

	"github.com/ledgerworks/conveyor/pipeline"
)

// Env vars overriding pipeline worker settings.
const (
	TaskQueueEnv               = "CONVEYOR_PIPELINE_TASK_QUEUE"
	WorkerEnabledEnv           = "CONVEYOR_PIPELINE_WORKER_ENABLED"
	MaxConcurrentActivitiesEnv = "CONVEYOR_PIPELINE_MAX_CONCURRENT_ACTIVITIES"
)

// PipelineConfig holds Temporal worker settings.
type PipelineConfig struct {
	TaskQueue               string `toml:"task_queue"`
	WorkerEnabled           *bool  `toml:"worker_enabled"`
	MaxConcurrentActivities int    `toml:"max_concurrent_activities"`
}

// Finalize applies defaults, then environment variable overrides.
func (c *PipelineConfig) Finalize() {
	c.loadDefaults()
	c.loadEnv()
}

// Merge overwrites non-zero fields from o.
func (c *PipelineConfig) Merge(o *PipelineConfig) {
	if o.TaskQueue != "" {
		c.TaskQueue = o.TaskQueue
	}
	if o.WorkerEnabled != nil {
		c.WorkerEnabled = o.WorkerEnabled
	}
	if o.MaxConcurrentActivities > 0 {
		c.MaxConcurrentActivities = o.MaxConcurrentActivities
	}
}

// RunWorker reports whether this process should host a pipeline worker.
func (c *PipelineConfig) RunWorker() bool {
	return c.WorkerEnabled == nil || *c.WorkerEnabled
}

func (c *PipelineConfig) loadDefaults() {
	if c.TaskQueue == "" {
		c.TaskQueue = pipeline.TaskQueue
	}
	if c.MaxConcurrentActivities <= 0 {
		c.MaxConcurrentActivities = 8
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(TaskQueueEnv); v != "" {
		c.TaskQueue = v
	}
	if v := os.Getenv(WorkerEnabledEnv); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.WorkerEnabled = &enabled
		}
	}
	if v := os.Getenv(MaxConcurrentActivitiesEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrentActivities = n
		}
	}
}
