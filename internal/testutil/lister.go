package testutil

import "path/filepath"

// StaticLister serves a fixed folder listing and counts how often it was asked.
type StaticLister struct {
	Folders map[string][]string // folder -> basenames
	Calls   int
}

func NewStaticLister() *StaticLister {
	return &StaticLister{Folders: make(map[string][]string)}
}

// Add registers basenames in folder.
func (l *StaticLister) Add(folder string, names ...string) *StaticLister {
	folder = filepath.Clean(folder)
	l.Folders[folder] = append(l.Folders[folder], names...)
	return l
}

func (l *StaticLister) ListFiles(folder string) ([]string, error) {
	l.Calls++
	var paths []string
	for _, name := range l.Folders[filepath.Clean(folder)] {
		paths = append(paths, filepath.Join(folder, name))
	}
	return paths, nil
}
