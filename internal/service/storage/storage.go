package storage

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"detectweb/internal/config"
	"detectweb/internal/logger"

	"github.com/google/uuid"
)

const (
	RunPrefix = "pred_"
	// MetadataFile holds the detections of a run, next to its annotated image.
	MetadataFile = "detections.json"
)

var (
	ErrRunExists       = errors.New("run directory already exists")
	ErrNoOutputImage   = errors.New("no result image generated")
	ErrInvalidFilename = errors.New("invalid upload filename")
)

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// RunNamer derives a run directory name from the request time.
type RunNamer func(now time.Time) string

// SecondNamer names runs by wall-clock seconds. Two runs in the same second collide.
func SecondNamer(now time.Time) string {
	return fmt.Sprintf("%s%d", RunPrefix, now.Unix())
}

// UniqueNamer keeps the timestamp for readability and appends a random token.
func UniqueNamer(now time.Time) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s%d_%s", RunPrefix, now.Unix(), token)
}

// StorageService owns the upload and result directories under the static root.
type StorageService struct {
	uploadDir string
	resultDir string
	namer     RunNamer
	logger    *logger.Logger
}

// NewStorageService creates a StorageService using UniqueNamer.
func NewStorageService(config *config.Config, logger *logger.Logger) *StorageService {
	return &StorageService{
		uploadDir: config.UploadDirectory(),
		resultDir: config.ResultDirectory(),
		namer:     UniqueNamer,
		logger:    logger,
	}
}

// SetNamer replaces the run naming strategy.
func (s *StorageService) SetNamer(namer RunNamer) {
	s.namer = namer
}

// EnsureDirectories creates the upload and result directories.
func (s *StorageService) EnsureDirectories() error {
	for _, dir := range []string{s.uploadDir, s.resultDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating directory %s: %w", dir, err)
		}
	}
	return nil
}

// SaveUpload writes r to the upload directory under the base name of filename.
// An existing file with the same name is overwritten.
func (s *StorageService) SaveUpload(filename string, r io.Reader) (string, error) {
	name := filepath.Base(filepath.Clean(filename))
	if name == "." || name == ".." || name == string(filepath.Separator) || name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	fullpath := filepath.Join(s.uploadDir, name)
	f, err := os.Create(fullpath)
	if err != nil {
		return "", fmt.Errorf("error saving upload %s: %w", name, err)
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		return "", fmt.Errorf("error saving upload %s: %w", name, err)
	}
	s.logger.Info("Saved upload %s (%d bytes)", name, n)
	return fullpath, nil
}

// CreateRun allocates a fresh run directory. The directory must not already exist.
func (s *StorageService) CreateRun(now time.Time) (string, string, error) {
	name := s.namer(now)
	dir := s.RunDirectory(name)

	if err := os.Mkdir(dir, 0755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", "", fmt.Errorf("%w: %s", ErrRunExists, dir)
		}
		return "", "", fmt.Errorf("error creating run directory %s: %w", dir, err)
	}
	return name, dir, nil
}

// RunDirectory returns the on-disk directory of a run.
func (s *StorageService) RunDirectory(name string) string {
	return filepath.Join(s.resultDir, name)
}

// ResultDirectory returns the root holding all run directories.
func (s *StorageService) ResultDirectory() string {
	return s.resultDir
}

// FindOutputImage returns the first file in dir with an image extension, in name order.
func FindOutputImage(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoOutputImage, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", ErrNoOutputImage
}

// ResultURL builds the public URL of a run's output image with a cache-busting suffix.
func ResultURL(runName, imageName string, now time.Time) string {
	u := path.Join("/static/results", url.PathEscape(runName), url.PathEscape(imageName))
	return fmt.Sprintf("%s?t=%d", u, now.Unix())
}

// ListRuns returns the names of run directories found on disk, oldest name first.
func (s *StorageService) ListRuns() ([]string, error) {
	entries, err := os.ReadDir(s.resultDir)
	if err != nil {
		return nil, fmt.Errorf("error reading results directory: %w", err)
	}

	var runs []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), RunPrefix) {
			runs = append(runs, entry.Name())
		}
	}
	sort.Strings(runs)
	return runs, nil
}

// ParseRunTime recovers the creation second encoded in a run name.
func ParseRunTime(name string) (time.Time, error) {
	rest, ok := strings.CutPrefix(name, RunPrefix)
	if !ok {
		return time.Time{}, fmt.Errorf("not a run name: %s", name)
	}
	secs, _, _ := strings.Cut(rest, "_")
	unix, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp in run name %s: %w", name, err)
	}
	return time.Unix(unix, 0), nil
}
