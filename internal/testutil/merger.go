package testutil

import (
	"errors"
	"os"
	"strings"
)

// FakeMerger is a DocumentMerger that works on plain text files: an image
// becomes "page(<content>)" and a merge joins its inputs with "|".
type FakeMerger struct {
	FailConvert bool
	FailMerge   bool
	// WritePartial makes a failing merge leave a half-written target behind.
	WritePartial bool

	Converted []string
	Merged    [][]string
}

func NewFakeMerger() *FakeMerger {
	return &FakeMerger{}
}

func (m *FakeMerger) ImageToPDF(imagePath, pdfPath string) error {
	if m.FailConvert {
		return errors.New("fake convert failure")
	}
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return err
	}
	m.Converted = append(m.Converted, imagePath)
	return os.WriteFile(pdfPath, []byte("page("+string(data)+")"), 0644)
}

func (m *FakeMerger) Merge(inputs []string, outPath string) error {
	m.Merged = append(m.Merged, append([]string{}, inputs...))
	if m.FailMerge {
		if m.WritePartial {
			os.WriteFile(outPath, []byte("partial"), 0644)
		}
		return errors.New("fake merge failure")
	}
	parts := make([]string, 0, len(inputs))
	for _, in := range inputs {
		data, err := os.ReadFile(in)
		if err != nil {
			return err
		}
		parts = append(parts, string(data))
	}
	return os.WriteFile(outPath, []byte(strings.Join(parts, "|")), 0644)
}
