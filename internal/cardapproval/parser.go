package cardapproval

import (
	stderrors "errors"
	"math"
	"strconv"
	"strings"

	"card-approval-workers/internal/common/config"
	"card-approval-workers/internal/common/errors"
)

const (
	fieldName = iota
	fieldSalary
	fieldEmpCert
	requiredFields
)

// Parser turns raw file content into card requests.
type Parser struct {
	// HeaderSignature is the header line to skip. Empty means the default.
	HeaderSignature string
	// StrictNumeric fails the parse on a non-numeric salary instead of
	// recording NaN.
	StrictNumeric bool
}

func NewParser(cfg config.ApprovalConfig) Parser {
	return Parser{
		HeaderSignature: cfg.HeaderSignature,
		StrictNumeric:   cfg.StrictNumericParsing,
	}
}

func (p Parser) header() string {
	if p.HeaderSignature == "" {
		return config.DefaultHeaderSignature
	}
	return p.HeaderSignature
}

// Parse returns the requests in file order. Any malformed data line fails the
// whole parse.
func (p Parser) Parse(content string) ([]CardRequest, error) {
	header := p.header()
	var requests []CardRequest

	for i, raw := range strings.Split(content, "\n") {
		lineNumber := i + 1
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" || line == header {
			continue
		}

		req, err := p.parseLine(lineNumber, line)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	if len(requests) == 0 {
		return nil, errors.NewEmptyFileError()
	}
	return requests, nil
}

func (p Parser) parseLine(lineNumber int, line string) (CardRequest, error) {
	fields := strings.Split(line, ",")
	if len(fields) < requiredFields {
		return CardRequest{}, errors.NewMalformedLineError(lineNumber, line)
	}
	for i := 0; i < requiredFields; i++ {
		fields[i] = strings.TrimSpace(fields[i])
		if fields[i] == "" {
			return CardRequest{}, errors.NewMalformedLineError(lineNumber, line)
		}
	}

	salary, ok := parseSalary(fields[fieldSalary])
	if !ok && p.StrictNumeric {
		return CardRequest{}, errors.NewInvalidSalaryError(lineNumber, fields[fieldSalary])
	}

	return CardRequest{
		Name:       fields[fieldName],
		Salary:     salary,
		HasEmpCert: fields[fieldEmpCert] == "true",
	}, nil
}

// parseSalary returns NaN and false for text that is not a number.
func parseSalary(text string) (float64, bool) {
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		var numErr *strconv.NumError
		if stderrors.As(err, &numErr) && stderrors.Is(numErr.Err, strconv.ErrRange) {
			return value, true
		}
		return math.NaN(), false
	}
	if math.IsNaN(value) {
		return value, false
	}
	return value, true
}
