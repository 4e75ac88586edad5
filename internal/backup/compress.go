package backup

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// CompressFile gzip-compresses inputPath into outputPath, streaming from
// disk to disk. It returns the compressed size in bytes.
func CompressFile(inputPath, outputPath string) (int64, error) {
	inFile, err := os.Open(inputPath)
	if err != nil {
		return 0, fmt.Errorf("open input file %q: %w", inputPath, err)
	}
	defer inFile.Close()

	outFile, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("create output file %q: %w", outputPath, err)
	}
	defer outFile.Close()

	writer := gzip.NewWriter(outFile)
	if _, err := io.Copy(writer, inFile); err != nil {
		return 0, fmt.Errorf("compress %q: %w", inputPath, err)
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("flush gzip stream: %w", err)
	}
	if err := outFile.Close(); err != nil {
		return 0, fmt.Errorf("close output file %q: %w", outputPath, err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return 0, fmt.Errorf("stat output file %q: %w", outputPath, err)
	}
	return info.Size(), nil
}

// DecompressFile streams the gzip artifact at inputPath into outputPath.
func DecompressFile(inputPath, outputPath string) error {
	inFile, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open artifact %q: %w", inputPath, err)
	}
	defer inFile.Close()

	reader, err := gzip.NewReader(inFile)
	if err != nil {
		return fmt.Errorf("read gzip header of %q: %w", inputPath, err)
	}
	defer reader.Close()

	outFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file %q: %w", outputPath, err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, reader); err != nil {
		return fmt.Errorf("decompress %q: %w", inputPath, err)
	}
	if err := outFile.Close(); err != nil {
		return fmt.Errorf("close output file %q: %w", outputPath, err)
	}
	return nil
}

// gzipUncompressedSize reads the ISIZE trailer of a gzip file: the original
// size modulo 2^32, exact for the database sizes this tool handles.
func gzipUncompressedSize(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open artifact %q: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Seek(-4, io.SeekEnd); err != nil {
		return 0, fmt.Errorf("seek gzip trailer of %q: %w", path, err)
	}
	var trailer [4]byte
	if _, err := io.ReadFull(f, trailer[:]); err != nil {
		return 0, fmt.Errorf("read gzip trailer of %q: %w", path, err)
	}
	return int64(binary.LittleEndian.Uint32(trailer[:])), nil
}
