package scan

import (
	"os"
	"path/filepath"
	"strings"

	"idcheck/internal/grouping"
	"idcheck/internal/services"
)

// Task is one file to upload. Immutable once produced.
type Task struct {
	Path  string
	Label string
	Key   grouping.Key
}

// Result is the output of a directory scan.
type Result struct {
	Tasks []Task
	// EmptyGroups lists voice folders that held no matching files.
	EmptyGroups []grouping.Key
	// Skipped lists top-level entries ignored by the scan (voice mode only).
	Skipped []string
}

// Groups returns the number of distinct group keys across tasks.
func (r Result) Groups() int {
	seen := make(map[grouping.Key]struct{})
	for _, task := range r.Tasks {
		seen[task.Key] = struct{}{}
	}
	return len(seen)
}

// Video lists the regular files directly under dir with an accepted
// extension, sorted by name. Each file is keyed by parsing its name.
func Video(dir string, extensions []string, parser grouping.KeyParser) (Result, error) {
	files, err := matchingFiles(dir, extensions)
	if err != nil {
		return Result{}, err
	}
	result := Result{Tasks: make([]Task, 0, len(files))}
	for _, name := range files {
		result.Tasks = append(result.Tasks, Task{
			Path:  filepath.Join(dir, name),
			Label: name,
			Key:   parser.Parse(name),
		})
	}
	return result, nil
}

// Voice treats every subdirectory of dir as a group keyed by its folder name.
// Folders are visited in sorted order and so are the files inside them.
func Voice(dir string, extensions []string, parser grouping.KeyParser) (Result, error) {
	entries, err := readDir(dir)
	if err != nil {
		return Result{}, err
	}
	var result Result
	for _, entry := range entries {
		if !entry.IsDir() {
			result.Skipped = append(result.Skipped, entry.Name())
			continue
		}
		folder := filepath.Join(dir, entry.Name())
		key := parser.Parse(entry.Name())
		files, err := matchingFiles(folder, extensions)
		if err != nil {
			return Result{}, err
		}
		if len(files) == 0 {
			result.EmptyGroups = append(result.EmptyGroups, key)
			continue
		}
		for _, name := range files {
			result.Tasks = append(result.Tasks, Task{
				Path:  filepath.Join(folder, name),
				Label: name,
				Key:   key,
			})
		}
	}
	return result, nil
}

func readDir(dir string) ([]os.DirEntry, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "scan", "read dir", "source directory not configured", nil)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, "scan", "read dir", dir, err)
		}
		return nil, services.Wrap(services.ErrValidation, "scan", "read dir", dir, err)
	}
	return entries, nil
}

func matchingFiles(dir string, extensions []string) ([]string, error) {
	entries, err := readDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if hasExtension(entry.Name(), extensions) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func hasExtension(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if ext != "" && strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
