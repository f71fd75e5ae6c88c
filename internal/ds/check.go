package ds

import "fmt"

// Duplicate lists the local files that claim to be the same artifact of one mailing.
type Duplicate struct {
	Mailing *Mailing
	Ext     string
	Files   []string
}

// CheckDuplicates reports every mailing with more than one local .pdf or more
// than one local .jpg file in folders.
func CheckDuplicates(lister FileLister, logger Logger, mailings []*Mailing, folders []string) ([]*Duplicate, error) {
	index := NewLocalIndex(lister, logger)
	if _, err := index.BuildOrReuse(folders); err != nil {
		return nil, fmt.Errorf("building local index: %w", err)
	}

	var dups []*Duplicate
	for _, m := range mailings {
		for _, ext := range []string{"pdf", "jpg"} {
			files := index.Find(ExtensionMatcher(m.Barcode, ext))
			if len(files) > 1 {
				logger.Warn("duplicate local files", "barcode", m.Barcode, "ext", ext, "files", files)
				dups = append(dups, &Duplicate{Mailing: m, Ext: ext, Files: files})
			}
		}
	}
	return dups, nil
}
