package model

import (
	"io"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// FieldReader is just a simple reader for whitespace-delimited text files.
type FieldReader struct {
	Pos    int
	Fields []string
}

// NewFieldReader constructs a new field reader around the given data
func NewFieldReader(data string) *FieldReader {
	return &FieldReader{0, strings.Fields(data)}
}

// Done is true when every field has been read
func (fr *FieldReader) Done() bool {
	return fr.Pos >= len(fr.Fields)
}

// Read returns the next space-delimited field/token
func (fr *FieldReader) Read() (string, error) {
	if fr.Done() {
		return "", io.EOF
	}
	p := fr.Pos
	fr.Pos++
	return fr.Fields[p], nil
}

// ReadInt reads the next token as an int
func (fr *FieldReader) ReadInt() (int, error) {
	s, err := fr.Read()
	if err != nil {
		return 0, err
	}

	i, err := strconv.ParseInt(s, 10, 0)
	return int(i), err
}

// ReadFloat reads the next token as a float
func (fr *FieldReader) ReadFloat() (float64, error) {
	s, err := fr.Read()
	if err != nil {
		return 0, err
	}

	return strconv.ParseFloat(s, 64)
}

// DataFiles names the input files of a chain. Concentrations and Features
// are optional.
type DataFiles struct {
	States         string
	Peptides       string
	Concentrations string
	Features       string
}

// NewDatasetFromFiles reads every named file into a Dataset. The result is
// not checked: call Dataset.Check.
func NewDatasetFromFiles(files DataFiles) (*Dataset, error) {
	d := &Dataset{}

	fr, err := readerFromFile(files.States)
	if err != nil {
		return nil, err
	}
	if d.StatePeptide, d.Intensities, err = readIndexedFloats(fr); err != nil {
		return nil, errors.Wrapf(err, "States file %s", files.States)
	}

	if fr, err = readerFromFile(files.Peptides); err != nil {
		return nil, err
	}
	if d.PeptideProtein, err = readInts(fr); err != nil {
		return nil, errors.Wrapf(err, "Peptides file %s", files.Peptides)
	}

	if files.Concentrations != "" {
		if fr, err = readerFromFile(files.Concentrations); err != nil {
			return nil, err
		}
		if d.KnownProteins, d.KnownConcentrations, err = readIndexedFloats(fr); err != nil {
			return nil, errors.Wrapf(err, "Concentrations file %s", files.Concentrations)
		}
	}

	if files.Features != "" {
		data, err := ioutil.ReadFile(files.Features)
		if err != nil {
			return nil, errors.Wrapf(err, "Could not READ features from %s", files.Features)
		}
		if d.PeptideFeatures, err = readRows(string(data)); err != nil {
			return nil, errors.Wrapf(err, "Features file %s", files.Features)
		}
	}

	return d, nil
}

func readerFromFile(filename string) (*FieldReader, error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not READ %s", filename)
	}
	return NewFieldReader(string(data)), nil
}

// readIndexedFloats reads "index value" pairs until EOF
func readIndexedFloats(fr *FieldReader) ([]int, []float64, error) {
	idx := make([]int, 0, len(fr.Fields)/2)
	vals := make([]float64, 0, len(fr.Fields)/2)
	for !fr.Done() {
		i, err := fr.ReadInt()
		if err != nil {
			return nil, nil, errors.Wrapf(err, "Bad index at field %d", fr.Pos)
		}
		v, err := fr.ReadFloat()
		if err == io.EOF {
			return nil, nil, errors.Errorf("Index %d at pair %d has no value", i, len(idx))
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "Bad value at field %d", fr.Pos)
		}
		idx = append(idx, i)
		vals = append(vals, v)
	}
	return idx, vals, nil
}

func readInts(fr *FieldReader) ([]int, error) {
	out := make([]int, 0, len(fr.Fields))
	for !fr.Done() {
		i, err := fr.ReadInt()
		if err != nil {
			return nil, errors.Wrapf(err, "Bad index at field %d", fr.Pos)
		}
		out = append(out, i)
	}
	return out, nil
}

// readRows reads one float row per non-blank line
func readRows(data string) ([][]float64, error) {
	var rows [][]float64
	for n, line := range strings.Split(data, "\n") {
		fr := NewFieldReader(line)
		if fr.Done() {
			continue
		}
		row := make([]float64, 0, len(fr.Fields))
		for !fr.Done() {
			v, err := fr.ReadFloat()
			if err != nil {
				return nil, errors.Wrapf(err, "Line %d", n+1)
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
