package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	ignite "github.com/kemurphy3/ignite-fitness-sub001"
)

// readRecords loads raw records from a CSV file with a header row or a JSON
// array of objects. "-" reads JSON from stdin.
func readRecords(path string, stdin io.Reader) ([]ignite.Record, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return parseCSV(data)
	}
	return parseJSON(data)
}

func parseJSON(data []byte) ([]ignite.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var records []ignite.Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("parse JSON input: %w", err)
	}
	return records, nil
}

func parseCSV(data []byte) ([]ignite.Record, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("parse CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []ignite.Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse CSV: %w", err)
		}
		rec := make(ignite.Record, len(header))
		for i, col := range header {
			if i < len(row) && row[i] != "" {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
