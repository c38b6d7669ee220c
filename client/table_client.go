package client

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Aashish23092/invoice-extractor/dto"
)

// TableClient detects the ruled table on page 1 of a PDF and returns its
// rows, header row first.
type TableClient interface {
	ExtractTable(ctx context.Context, pdfPath string) ([][]string, error)
}

const camelotScript = `
import json
import sys
import warnings
warnings.filterwarnings('ignore')

import camelot

tables = camelot.read_pdf(sys.argv[1], pages='1', flavor='lattice')
if tables.n == 0:
    print('[]')
    sys.exit(0)

rows = tables[0].df.fillna('').astype(str).values.tolist()
print(json.dumps(rows))
`

// CamelotClient shells out to camelot's lattice parser.
type CamelotClient struct {
	python  string
	timeout time.Duration
}

// NewCamelotClient creates a client that runs camelot with the given
// interpreter. A zero timeout means no limit beyond ctx.
func NewCamelotClient(python string, timeout time.Duration) *CamelotClient {
	if python == "" {
		python = "python3"
	}
	zap.L().Info("camelot table client initialized", zap.String("python", python), zap.Duration("timeout", timeout))
	return &CamelotClient{python: python, timeout: timeout}
}

func (c *CamelotClient) ExtractTable(ctx context.Context, pdfPath string) ([][]string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.python, "-c", camelotScript, pdfPath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrapf(dto.ErrTableExtraction, "camelot timed out after %s", time.Since(start).Round(time.Millisecond))
		}
		return nil, eris.Wrapf(dto.ErrTableExtraction, "camelot command failed: %v, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	rows, err := ParseTableJSON(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	zap.L().Info("camelot extracted table",
		zap.String("path", pdfPath),
		zap.Int("rows", len(rows)),
		zap.Duration("took", time.Since(start)),
	)
	return rows, nil
}

// ParseTableJSON decodes a JSON array of rows. Cells may be strings or
// numbers; nulls become empty cells.
func ParseTableJSON(data []byte) ([][]string, error) {
	var raw [][]interface{}
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimSpace(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, eris.Wrapf(dto.ErrTableExtraction, "table is not a JSON array of rows: %v", err)
	}
	if len(raw) == 0 {
		return nil, eris.Wrap(dto.ErrTableExtraction, "no bordered table found on page 1")
	}

	rows := make([][]string, len(raw))
	for i, r := range raw {
		rows[i] = make([]string, len(r))
		for j, cell := range r {
			switch v := cell.(type) {
			case nil:
			case string:
				rows[i][j] = v
			case json.Number:
				rows[i][j] = v.String()
			default:
				b, _ := json.Marshal(v)
				rows[i][j] = string(b)
			}
		}
	}
	return rows, nil
}

// StaticTableClient serves rows decoded up front, e.g. uploaded with the request.
type StaticTableClient struct {
	Rows [][]string
}

func (s StaticTableClient) ExtractTable(context.Context, string) ([][]string, error) {
	if len(s.Rows) == 0 {
		return nil, eris.Wrap(dto.ErrTableExtraction, "no table rows supplied")
	}
	return s.Rows, nil
}
