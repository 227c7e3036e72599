package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		body := `{
			"run_id": "run-42",
			"max_steps": 50,
			"interrupt_nodes": ["review"],
			"log_level": "debug",
			"checkpoint_path": "./run.db",
			"metrics_addr": ":9102"
		}`
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.RunID != "run-42" || cfg.MaxSteps != 50 {
			t.Errorf("cfg = %+v", cfg)
		}
		if len(cfg.InterruptNodes) != 1 || cfg.InterruptNodes[0] != "review" {
			t.Errorf("interrupt nodes = %v", cfg.InterruptNodes)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("err = %v, want wrapped not-exist error", err)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); !errors.Is(err, ErrInvalidJSON) {
			t.Errorf("err = %v, want ErrInvalidJSON", err)
		}
	})
}
