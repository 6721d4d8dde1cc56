package handler

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/kazz187/chipcliff/internal/task"
)

var pageTemplate = template.Must(template.New("page").Parse(`<html>
<head><title>{{.}}</title></head>
<body>
    <h1>Generated Code for {{.}}</h1>
</body>
</html>
`))

// Coder generates an HTML page for the task description and verifies the
// result by writing it out and re-parsing it.
type Coder struct {
	workDir string
}

func NewCoder(workDir string) *Coder {
	return &Coder{workDir: workDir}
}

func (c *Coder) Category() task.Category {
	return task.CategoryCoding
}

func (c *Coder) Execute(ctx context.Context, description string) (*Verdict, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, description); err != nil {
		return &Verdict{Feedback: fmt.Sprintf("Error generating code: %v", err)}, nil
	}
	code := buf.String()
	return &Verdict{Output: code, Feedback: c.testCode(code)}, nil
}

// testCode writes the generated page to the workspace and checks that it
// reads back as well-formed HTML with a non-empty title.
func (c *Coder) testCode(code string) string {
	if err := os.MkdirAll(c.workDir, 0o755); err != nil {
		return fmt.Sprintf("Test failed: %v", err)
	}
	path := filepath.Join(c.workDir, "generated.html")
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return fmt.Sprintf("Test failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Sprintf("Test failed: %v", err)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return fmt.Sprintf("Test failed: %v", err)
	}
	if strings.TrimSpace(findTitle(doc)) == "" {
		return "Test failed: generated page has no title"
	}
	return "Code tested successfully"
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return nodeText(n)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if title := findTitle(child); title != "" {
			return title
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			sb.WriteString(child.Data)
		} else {
			sb.WriteString(nodeText(child))
		}
	}
	return sb.String()
}
