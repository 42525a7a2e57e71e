package vision

import (
	"fmt"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/Naresh-ado/parking-final/internal/fsutil"
	"github.com/Naresh-ado/parking-final/internal/monitoring"
)

// DefaultMaxFeatures caps the ORB keypoints extracted per image.
const DefaultMaxFeatures = 1000

// Extractor computes binary ORB descriptors for grayscale images. The same
// extractor must be used for the reference corpus and the live frames.
type Extractor struct {
	orb gocv.ORB
}

// NewExtractor returns an ORB extractor retaining at most maxFeatures
// keypoints per image.
func NewExtractor(maxFeatures int) *Extractor {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	// OpenCV ORB defaults apart from the feature cap.
	orb := gocv.NewORBWithParams(maxFeatures, 1.2, 8, 31, 0, 2, gocv.ORBScoreTypeHarris, 31, 20)
	return &Extractor{orb: orb}
}

// Describe returns the descriptor matrix for gray and its keypoint count.
// When no keypoints are found the returned Mat is empty and count is zero.
// The caller owns the returned Mat.
func (e *Extractor) Describe(gray gocv.Mat) (gocv.Mat, int) {
	if gray.Empty() {
		return gocv.NewMat(), 0
	}
	mask := gocv.NewMat()
	defer mask.Close()

	kps, desc := e.orb.DetectAndCompute(gray, mask)
	if len(kps) == 0 || desc.Empty() {
		desc.Close()
		return gocv.NewMat(), 0
	}
	return desc, len(kps)
}

// Close releases the underlying ORB detector.
func (e *Extractor) Close() error {
	return e.orb.Close()
}

// ReferenceSample is the descriptor set extracted from one training image.
type ReferenceSample struct {
	Name        string
	Descriptors gocv.Mat
	Count       int
}

// ReferenceSet holds every usable sample for one category.
type ReferenceSet struct {
	Category Category
	Samples  []ReferenceSample
}

// Library is the reference feature corpus. It is built once by LoadLibrary
// and only read afterwards.
type Library struct {
	sets []ReferenceSet
}

// NewLibrary wraps already extracted reference sets. Sets without samples
// are dropped.
func NewLibrary(sets ...ReferenceSet) *Library {
	lib := &Library{}
	for _, s := range sets {
		if len(s.Samples) > 0 {
			lib.sets = append(lib.sets, s)
		}
	}
	return lib
}

// Sets returns the reference sets in load order.
func (l *Library) Sets() []ReferenceSet {
	return l.sets
}

// Len returns the total number of reference samples.
func (l *Library) Len() int {
	n := 0
	for _, s := range l.sets {
		n += len(s.Samples)
	}
	return n
}

// Close releases all descriptor matrices.
func (l *Library) Close() error {
	for _, s := range l.sets {
		for _, sample := range s.Samples {
			sample.Descriptors.Close()
		}
	}
	l.sets = nil
	return nil
}

// LibraryOptions controls how the training corpus is read.
type LibraryOptions struct {
	// FS defaults to the OS filesystem.
	FS fsutil.FileSystem
	// Categories defaults to ReferenceCategories.
	Categories []Category
}

// LoadLibrary reads <root>/<category>/* for each category, decodes every
// file as a grayscale image and keeps the descriptors of those that yield
// at least one keypoint. Unreadable or featureless images are skipped.
// Missing category directories are not an error; a missing root is.
func LoadLibrary(root string, ext *Extractor, opts LibraryOptions) (*Library, error) {
	fsys := opts.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	categories := opts.Categories
	if categories == nil {
		categories = ReferenceCategories
	}

	info, err := fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat training directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("training path %q is not a directory", root)
	}

	lib := &Library{}
	for _, category := range categories {
		dir := filepath.Join(root, string(category))
		paths, err := fsutil.Files(fsys, dir)
		if err != nil {
			monitoring.Logf("skipping %s references: %v", category, err)
			continue
		}

		set := ReferenceSet{Category: category}
		for _, path := range paths {
			sample, ok := loadSample(fsys, path, ext)
			if !ok {
				continue
			}
			monitoring.Logf("Loaded reference: %s (%s) - %d features", sample.Name, category, sample.Count)
			set.Samples = append(set.Samples, sample)
		}
		if len(set.Samples) > 0 {
			lib.sets = append(lib.sets, set)
		}
	}
	return lib, nil
}

func loadSample(fsys fsutil.FileSystem, path string, ext *Extractor) (ReferenceSample, bool) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		monitoring.Debugf("skipping %s: %v", path, err)
		return ReferenceSample{}, false
	}
	if len(data) == 0 {
		monitoring.Debugf("skipping %s: empty file", path)
		return ReferenceSample{}, false
	}
	img, err := gocv.IMDecode(data, gocv.IMReadGrayScale)
	if err != nil || img.Empty() {
		img.Close()
		monitoring.Debugf("skipping %s: not a decodable image", path)
		return ReferenceSample{}, false
	}
	defer img.Close()

	desc, n := ext.Describe(img)
	if n == 0 {
		desc.Close()
		monitoring.Debugf("skipping %s: no keypoints", path)
		return ReferenceSample{}, false
	}
	return ReferenceSample{Name: filepath.Base(path), Descriptors: desc, Count: n}, true
}
