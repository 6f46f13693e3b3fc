// Package validation checks the document and preview paths handed to the
// provider and the CLI: traversal, existence, writability and whether the
// output extension agrees with the requested image format.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateOutputPath validates an output path for security and accessibility
// Returns error if path is invalid, contains path traversal attempts, or is not writable
func ValidateOutputPath(outputPath string) error {
	if outputPath == "" {
		return fmt.Errorf("output path cannot be empty")
	}

	// Check for path traversal attempts before cleaning resolves them
	if hasParentSegment(outputPath) {
		return fmt.Errorf("path traversal detected in output path: %s", outputPath)
	}

	cleanPath := filepath.Clean(outputPath)

	// Convert to absolute path
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	dir := filepath.Dir(absPath)
	if info, err := os.Stat(absPath); err == nil && info.IsDir() {
		return fmt.Errorf("output path is a directory: %s", absPath)
	}
	if err := requireDir(dir); err != nil {
		return err
	}

	// Check if directory is writable by attempting to create a temp file
	testFile := filepath.Join(dir, ".preview_write_test")
	f, err := os.OpenFile(testFile, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("output directory is not writable: %s: %w", dir, err)
	}
	f.Close()
	os.Remove(testFile) // Clean up test file

	return nil
}

// ValidateInputPath validates an input path such as a template document
// Returns error if path doesn't exist, is not accessible or is a directory
func ValidateInputPath(inputPath string) error {
	if inputPath == "" {
		return fmt.Errorf("input path cannot be empty")
	}

	// Clean the path
	cleanPath := filepath.Clean(inputPath)

	// Check for path traversal in relative context
	if strings.Contains(cleanPath, "..") && !filepath.IsAbs(inputPath) {
		// Allow absolute paths with .. after cleaning, but be careful with relative paths
		return fmt.Errorf("potentially unsafe path detected: %s", inputPath)
	}

	// Check if path exists
	info, err := os.Stat(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input path does not exist: %s", cleanPath)
		}
		return fmt.Errorf("failed to access input path: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("input path must be a file: %s", cleanPath)
	}

	return nil
}

func requireDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("output directory does not exist: %s", dir)
	case err != nil:
		return fmt.Errorf("failed to access output directory: %w", err)
	case !info.IsDir():
		return fmt.Errorf("output path parent is not a directory: %s", dir)
	}
	return nil
}

// imageExtensions maps file extensions to the image format they imply
var imageExtensions = map[string]string{
	".png":  "png",
	".jpg":  "jpeg",
	".jpeg": "jpeg",
}

// ValidateOutputExtension reports an error when the extension of
// outputPath names a different image format than format. Paths without an
// extension are accepted.
func ValidateOutputExtension(outputPath, format string) error {
	ext := strings.ToLower(filepath.Ext(outputPath))
	if ext == "" {
		return nil
	}
	implied, ok := imageExtensions[ext]
	if !ok {
		return fmt.Errorf("unsupported output extension %q (expected .png, .jpg or .jpeg)", ext)
	}
	switch format = strings.ToLower(strings.TrimSpace(format)); format {
	case "":
		format = "png"
	case "jpg":
		format = "jpeg"
	}
	if implied != format {
		return fmt.Errorf("output extension %q does not match format %q", ext, format)
	}
	return nil
}

func hasParentSegment(p string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(p), "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// FS validates paths against the local file system
type FS struct{}

// ValidateOutputPath implements interfaces.PathValidator
func (FS) ValidateOutputPath(path string) error {
	return ValidateOutputPath(path)
}

// ValidateInputPath implements interfaces.PathValidator
func (FS) ValidateInputPath(path string) error {
	return ValidateInputPath(path)
}
