package sexy

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// InputType represents the type of input code fence in a Sexy test
type InputType string

const (
	InputTypeBF InputType = "bf"
)

// AssertionType represents the type of assertion code fence in a Sexy test
type AssertionType string

const (
	AssertionTypeAST          AssertionType = "ast"           // tree straight from the builder
	AssertionTypeOptimized    AssertionType = "optimized"     // tree after the optimizer
	AssertionTypeExecute      AssertionType = "execute"       // exact stdout
	AssertionTypeTape         AssertionType = "tape"          // leading tape cells, e.g. (0 1 2)
	AssertionTypeCompileError AssertionType = "compile-error" // substring of the error
	AssertionTypeInput        AssertionType = "input"         // stdin for execute and tape
)

// Assertion represents a single assertion in a Sexy test
type Assertion struct {
	Type       AssertionType
	Content    string // The raw content of the assertion code fence
	ParsedSexy *Node  // Set for ast, optimized and tape assertions
	Line       int
}

// TestCase represents a complete Sexy test case extracted from Markdown
type TestCase struct {
	Name       string // The test name from the heading (after "Test: ")
	Input      string // The program source
	InputType  InputType
	InputData  string // stdin, from an input fence
	Assertions []Assertion
}

// ExtractTestCases parses a Markdown document and extracts all Sexy test cases
func ExtractTestCases(markdownContent string) ([]TestCase, error) {
	md := goldmark.New()
	source := []byte(markdownContent)

	doc := md.Parser().Parse(text.NewReader(source))

	var testCases []TestCase
	var currentTestCase *TestCase
	hasInput := false

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			headingText := extractTextFromNode(n, source)
			if !strings.HasPrefix(headingText, "Test: ") {
				return ast.WalkContinue, nil
			}
			if currentTestCase != nil {
				if err := validateTestCase(currentTestCase, hasInput); err != nil {
					return ast.WalkStop, err
				}
				testCases = append(testCases, *currentTestCase)
			}
			currentTestCase = &TestCase{
				Name:       strings.TrimPrefix(headingText, "Test: "),
				Assertions: []Assertion{},
			}
			hasInput = false

		case *ast.FencedCodeBlock:
			language := string(n.Language(source))
			content := extractCodeBlockContent(n, source)
			lineNum := getLineNumber(n, source)

			if currentTestCase == nil {
				if language == "" {
					// Plain code blocks are documentation.
					return ast.WalkContinue, nil
				}
				if isInputFence(language) || isAssertionFence(language) {
					return ast.WalkStop, fmt.Errorf("line %d: %s fence found outside of test case", lineNum, language)
				}
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s' found outside of test case", lineNum, language)
			}

			switch {
			case language == "":
				return ast.WalkContinue, nil

			case isInputFence(language):
				if hasInput {
					return ast.WalkStop, fmt.Errorf("line %d: multiple input fences found in test '%s'", lineNum, currentTestCase.Name)
				}
				// Programs may legitimately be empty, so presence is tracked
				// separately from content.
				hasInput = true
				currentTestCase.Input = strings.TrimRight(content, "\n")
				currentTestCase.InputType = InputType(language)

			case language == string(AssertionTypeInput):
				if currentTestCase.InputData != "" {
					return ast.WalkStop, fmt.Errorf("line %d: multiple input fences found in test '%s'", lineNum, currentTestCase.Name)
				}
				currentTestCase.InputData = content

			case isAssertionFence(language):
				assertion := Assertion{
					Type:    AssertionType(language),
					Content: strings.TrimRight(content, "\n"),
					Line:    lineNum,
				}
				if hasSexyContent(assertion.Type) {
					parsed, err := Parse(assertion.Content)
					if err != nil {
						return ast.WalkStop, fmt.Errorf("line %d: failed to parse Sexy assertion in test '%s': %w", lineNum, currentTestCase.Name, err)
					}
					assertion.ParsedSexy = parsed
				}
				currentTestCase.Assertions = append(currentTestCase.Assertions, assertion)

			default:
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s' in test '%s'", lineNum, language, currentTestCase.Name)
			}
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking markdown AST: %w", err)
	}

	if currentTestCase != nil {
		if err := validateTestCase(currentTestCase, hasInput); err != nil {
			return nil, err
		}
		testCases = append(testCases, *currentTestCase)
	}

	return testCases, nil
}

// extractTextFromNode extracts plain text content from a markdown node
func extractTextFromNode(node ast.Node, source []byte) string {
	var buf bytes.Buffer

	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if text, ok := n.(*ast.Text); ok {
				buf.Write(text.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})

	return buf.String()
}

// extractCodeBlockContent extracts the content from a fenced code block
func extractCodeBlockContent(codeBlock *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer

	for i := 0; i < codeBlock.Lines().Len(); i++ {
		line := codeBlock.Lines().At(i)
		buf.Write(line.Value(source))
	}

	return buf.String()
}

func isInputFence(language string) bool {
	return language == string(InputTypeBF)
}

func isAssertionFence(language string) bool {
	switch AssertionType(language) {
	case AssertionTypeAST, AssertionTypeOptimized, AssertionTypeExecute,
		AssertionTypeTape, AssertionTypeCompileError, AssertionTypeInput:
		return true
	}
	return false
}

func hasSexyContent(t AssertionType) bool {
	return t == AssertionTypeAST || t == AssertionTypeOptimized || t == AssertionTypeTape
}

// validateTestCase ensures a test case has both input and at least one assertion
func validateTestCase(testCase *TestCase, hasInput bool) error {
	if !hasInput {
		return fmt.Errorf("test '%s' has no input fence", testCase.Name)
	}
	if len(testCase.Assertions) == 0 {
		return fmt.Errorf("test '%s' has no assertion fences", testCase.Name)
	}
	return nil
}

// getLineNumber calculates the line number of a given AST node
func getLineNumber(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	startPos := node.Lines().At(0).Start
	return bytes.Count(source[:startPos], []byte("\n")) + 1
}
