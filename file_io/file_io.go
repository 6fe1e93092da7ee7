package file_io

import (
	"context"
	L "filepipe/logger"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// WalkedFile is a regular file found by WalkFiles.
type WalkedFile struct {
	Path       string
	Name       string
	Size       int64
	ModifiedAt time.Time
}

// WalkFiles calls fn for every readable regular file under root. Directories
// below root are only visited when recursive is set.
func WalkFiles(ctx context.Context, root string, recursive bool, fn func(WalkedFile) error) error {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("could not get abs path for %s: %w", root, err)
	}
	info, err := os.Stat(rootAbs)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", rootAbs)
	}
	return filepath.WalkDir(rootAbs, func(path string, d fs.DirEntry, walkError error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkError != nil {
			if path == rootAbs {
				return walkError
			}
			L.Debug(fmt.Sprintf("WalkFiles: skipping %s: %v", path, walkError))
			return fs.SkipDir
		}

		isSpecialPath := strings.HasPrefix(path, "/proc") ||
			strings.HasPrefix(path, "/dev") ||
			strings.HasPrefix(path, "/sys")

		if d.IsDir() {
			if path == rootAbs {
				return nil
			}
			if !recursive || isSpecialPath {
				return fs.SkipDir
			}
			return nil
		}
		if isSpecialPath || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		readable, err := IsReadable(path)
		if err != nil || !readable {
			L.Debug(fmt.Sprintf("WalkFiles: could not read: %s", path))
			return nil
		}
		return fn(WalkedFile{
			Path:       path,
			Name:       d.Name(),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	})
}

func IsReadable(filePath string) (bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer file.Close()
	return true, nil
}

func IsWritable(inputPath string) (bool, error) {

	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Errorf("path does not exist: %s", inputPath)
		}
		return false, fmt.Errorf("failed to stat path: %s", inputPath)
	}

	if info.IsDir() {
		return isDirWritable(inputPath)
	} else {
		return isFileWritable(inputPath)
	}
}

func isDirWritable(inputDirPath string) (bool, error) {
	tempFilePath := filepath.Join(inputDirPath, ".write-test-"+strconv.Itoa(int(time.Now().UnixNano())))
	tempFile, err := os.Create(tempFilePath)
	if err != nil {
		return false, err
	}
	_ = tempFile.Close()
	_ = os.Remove(tempFilePath)
	return true, nil
}

func isFileWritable(inputFilePath string) (bool, error) {
	inputFile, err := os.OpenFile(inputFilePath, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return false, err
	}
	_ = inputFile.Close()
	return true, nil
}

func Exists(inputFilePath string) (bool, error) {
	info, err := os.Stat(inputFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory", inputFilePath)
	}
	return true, nil
}

type FileInfo struct {
	Size       uint64
	ModifiedAt time.Time
}

// return filesize in bytes and last modified timestamp
func GetFileInfo(inputFilePath string) (*FileInfo, error) {
	stat, err := os.Stat(inputFilePath)
	if err != nil {
		return nil, err
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("could not find size: %s is a directory", inputFilePath)
	}
	return &FileInfo{Size: uint64(stat.Size()), ModifiedAt: stat.ModTime()}, nil
}

type WriteMode uint8

const (
	WRITE_APPEND WriteMode = iota
	WRITE_OVERWRITE
)

func WriteToFile(filePath string, data []byte, mode WriteMode) (int, error) {
	var flags int
	switch mode {
	case WRITE_APPEND:
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	case WRITE_OVERWRITE:
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	parent := filepath.Dir(filePath)
	err := os.MkdirAll(parent, os.ModePerm)
	if err != nil {
		return 0, err
	}
	file, err := os.OpenFile(filePath, flags, 0644)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	return file.Write(data)
}

func GetGlobalWorkDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(filepath.Join(homeDir, ".filepipe"))
	if err != nil {
		return "", err
	}
	err = os.MkdirAll(absPath, os.ModePerm)
	if err != nil {
		return "", err
	}
	return absPath, nil
}

// ReadFile reads the whole file unless ctx is done first.
func ReadFile(ctx context.Context, filePath string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("could not read file %s: %w", filePath, err)
	}
	return data, nil
}
