package fileinput

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/graph-import/pkg/errors"
	"github.com/graph-import/pkg/values"
)

// File name conventions, matching the exporter side:
//
//	nodes[_Label[_Label...]][_N].csv
//	relationships_TYPE[_N].csv
//	graph_property_KEY[_N].csv
const (
	nodeFilePrefix     = "nodes"
	relFilePrefix      = "relationships"
	graphPropPrefix    = "graph_property"
	nodeSchemaFile     = "node_schema.csv"
	relSchemaFile      = "relationship_schema.csv"
	graphPropSchemaFile = "graph_property_schema.csv"
)

// CSVInput reads an import directory laid out per the conventions above.
type CSVInput struct {
	dir string
}

// NewCSVInput creates an input over the given directory.
func NewCSVInput(dir string) (*CSVInput, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeNotFound, "input directory", err)
	}
	if !info.IsDir() {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "%s is not a directory", dir)
	}
	return &CSVInput{dir: dir}, nil
}

// listFiles returns the sorted data files with the given prefix.
func (in *CSVInput) listFiles(prefix string) ([]string, error) {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		// Schema sidecars share the prefix with data files.
		if strings.HasSuffix(name, "_schema.csv") || name == nodeSchemaFile || name == relSchemaFile {
			continue
		}
		out = append(out, filepath.Join(in.dir, name))
	}
	sort.Strings(out)
	return out, nil
}

// Nodes implements FileInput.
func (in *CSVInput) Nodes() Iterable[NodeRecord] {
	return iterableFunc[NodeRecord](func() (Iterator[NodeRecord], error) {
		files, err := in.listFiles(nodeFilePrefix)
		if err != nil {
			return nil, err
		}
		return newMultiFileIterator(files, newNodeFileIterator), nil
	})
}

// Relationships implements FileInput.
func (in *CSVInput) Relationships() Iterable[RelationshipRecord] {
	return iterableFunc[RelationshipRecord](func() (Iterator[RelationshipRecord], error) {
		files, err := in.listFiles(relFilePrefix)
		if err != nil {
			return nil, err
		}
		return newMultiFileIterator(files, newRelationshipFileIterator), nil
	})
}

// GraphProperties implements FileInput.
func (in *CSVInput) GraphProperties() Iterable[GraphPropertyRecord] {
	return iterableFunc[GraphPropertyRecord](func() (Iterator[GraphPropertyRecord], error) {
		files, err := in.listFiles(graphPropPrefix)
		if err != nil {
			return nil, err
		}
		return newMultiFileIterator(files, newGraphPropertyFileIterator), nil
	})
}

// iterableFunc adapts a constructor into an Iterable.
type iterableFunc[T any] func() (Iterator[T], error)

func (f iterableFunc[T]) Iterator() (Iterator[T], error) { return f() }

// multiFileIterator chains per-file iterators over a file list.
type multiFileIterator[T any] struct {
	files   []string
	open    func(path string) (Iterator[T], error)
	current Iterator[T]
	next    int
}

func newMultiFileIterator[T any](files []string, open func(path string) (Iterator[T], error)) *multiFileIterator[T] {
	return &multiFileIterator[T]{files: files, open: open}
}

func (m *multiFileIterator[T]) Next() (T, bool, error) {
	var zero T
	for {
		if m.current == nil {
			if m.next >= len(m.files) {
				return zero, false, nil
			}
			it, err := m.open(m.files[m.next])
			if err != nil {
				return zero, false, err
			}
			m.current = it
			m.next++
		}
		record, ok, err := m.current.Next()
		if err != nil {
			_ = m.current.Close()
			return zero, false, err
		}
		if ok {
			return record, true, nil
		}
		if err := m.current.Close(); err != nil {
			return zero, false, err
		}
		m.current = nil
	}
}

func (m *multiFileIterator[T]) Close() error {
	if m.current != nil {
		err := m.current.Close()
		m.current = nil
		return err
	}
	return nil
}

// csvFile wraps an open CSV reader with its path for error context.
type csvFile struct {
	path   string
	file   *os.File
	reader *csv.Reader
	line   int
}

func openCSV(path string) (*csvFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return &csvFile{path: path, file: f, reader: r}, nil
}

func (c *csvFile) read() ([]string, error) {
	fields, err := c.reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeParseError,
			fmt.Sprintf("%s line %d", filepath.Base(c.path), c.line+1), err)
	}
	c.line++
	return fields, nil
}

func (c *csvFile) rowError(format string, args ...interface{}) error {
	prefix := fmt.Sprintf("%s line %d: ", filepath.Base(c.path), c.line)
	return apperrors.Newf(apperrors.CodeParseError, prefix+format, args...)
}

func (c *csvFile) Close() error { return c.file.Close() }

// inferredLabels extracts labels baked into a node file name:
// nodes_Person_City_0.csv carries Person and City.
func inferredLabels(path string) []string {
	base := strings.TrimSuffix(filepath.Base(path), ".csv")
	parts := strings.Split(base, "_")
	var labels []string
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		if _, err := strconv.Atoi(p); err == nil {
			continue // shard counter
		}
		labels = append(labels, p)
	}
	return labels
}

// inferredType extracts the relationship type from a file name:
// relationships_KNOWS_0.csv carries KNOWS.
func inferredType(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".csv")
	parts := strings.Split(base, "_")
	var tokens []string
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		if _, err := strconv.Atoi(p); err == nil {
			continue
		}
		tokens = append(tokens, p)
	}
	return strings.Join(tokens, "_")
}

// nodeFileIterator yields NodeRecords from one node file.
type nodeFileIterator struct {
	csv        *csvFile
	header     *nodeHeader
	fileLabels []string
}

func newNodeFileIterator(path string) (Iterator[NodeRecord], error) {
	c, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	fields, err := c.read()
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	if fields == nil {
		_ = c.Close()
		return nil, apperrors.Newf(apperrors.CodeInvalidHeader, "%s is empty", filepath.Base(path))
	}
	header, err := parseNodeHeader(fields)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return &nodeFileIterator{csv: c, header: header, fileLabels: inferredLabels(path)}, nil
}

func (it *nodeFileIterator) Next() (NodeRecord, bool, error) {
	var zero NodeRecord
	fields, err := it.csv.read()
	if err != nil {
		return zero, false, err
	}
	if fields == nil {
		return zero, false, nil
	}

	id, err := parseLong(fields[it.header.idIndex])
	if err != nil {
		return zero, false, it.csv.rowError("bad node id %q", fields[it.header.idIndex])
	}

	labels := it.fileLabels
	if it.header.labelIndex >= 0 && it.header.labelIndex < len(fields) {
		if cell := fields[it.header.labelIndex]; cell != "" {
			labels = append(append([]string(nil), labels...), splitArray(cell)...)
		}
	}

	props, err := parseColumns(it.csv, fields, it.header.columns)
	if err != nil {
		return zero, false, err
	}
	return NodeRecord{ID: id, Labels: labels, Properties: props}, true, nil
}

func (it *nodeFileIterator) Close() error { return it.csv.Close() }

// relationshipFileIterator yields RelationshipRecords from one file.
type relationshipFileIterator struct {
	csv     *csvFile
	header  *relationshipHeader
	relType string
}

func newRelationshipFileIterator(path string) (Iterator[RelationshipRecord], error) {
	c, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	fields, err := c.read()
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	if fields == nil {
		_ = c.Close()
		return nil, apperrors.Newf(apperrors.CodeInvalidHeader, "%s is empty", filepath.Base(path))
	}
	header, err := parseRelationshipHeader(fields)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return &relationshipFileIterator{csv: c, header: header, relType: inferredType(path)}, nil
}

func (it *relationshipFileIterator) Next() (RelationshipRecord, bool, error) {
	var zero RelationshipRecord
	fields, err := it.csv.read()
	if err != nil {
		return zero, false, err
	}
	if fields == nil {
		return zero, false, nil
	}

	start, err := parseLong(fields[it.header.startIndex])
	if err != nil {
		return zero, false, it.csv.rowError("bad start id %q", fields[it.header.startIndex])
	}
	end, err := parseLong(fields[it.header.endIndex])
	if err != nil {
		return zero, false, it.csv.rowError("bad end id %q", fields[it.header.endIndex])
	}

	props, err := parseColumns(it.csv, fields, it.header.columns)
	if err != nil {
		return zero, false, err
	}
	return RelationshipRecord{StartID: start, EndID: end, Type: it.relType, Properties: props}, true, nil
}

func (it *relationshipFileIterator) Close() error { return it.csv.Close() }

// graphPropertyFileIterator yields one value per row for one key.
type graphPropertyFileIterator struct {
	csv    *csvFile
	column *column
}

func newGraphPropertyFileIterator(path string) (Iterator[GraphPropertyRecord], error) {
	c, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	fields, err := c.read()
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	if fields == nil {
		_ = c.Close()
		return nil, apperrors.Newf(apperrors.CodeInvalidHeader, "%s is empty", filepath.Base(path))
	}
	col, err := parseGraphPropertyHeader(fields)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return &graphPropertyFileIterator{csv: c, column: col}, nil
}

func (it *graphPropertyFileIterator) Next() (GraphPropertyRecord, bool, error) {
	var zero GraphPropertyRecord
	fields, err := it.csv.read()
	if err != nil {
		return zero, false, err
	}
	if fields == nil {
		return zero, false, nil
	}
	v, err := parseCell(fields[0], it.column.typ)
	if err != nil {
		return zero, false, it.csv.rowError("%v", err)
	}
	return GraphPropertyRecord{Key: it.column.key, Value: v}, true, nil
}

func (it *graphPropertyFileIterator) Close() error { return it.csv.Close() }

// parseColumns converts the data cells of a row into PropertyValues.
func parseColumns(c *csvFile, fields []string, columns []column) (*values.PropertyValues, error) {
	if len(columns) == 0 {
		return nil, nil
	}
	props := values.NewPropertyValues()
	for _, col := range columns {
		if col.index >= len(fields) {
			continue
		}
		v, err := parseCell(fields[col.index], col.typ)
		if err != nil {
			return nil, c.rowError("column %q: %v", col.key, err)
		}
		if v != nil {
			props.Put(col.key, v)
		}
	}
	if props.IsEmpty() {
		return nil, nil
	}
	return props, nil
}

func parseLong(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

func parseDouble(raw string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}

func parseBool(raw string) (bool, error) {
	return strconv.ParseBool(strings.TrimSpace(raw))
}
