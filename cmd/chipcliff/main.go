package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/kazz187/chipcliff/internal/task"
)

var (
	app       = kingpin.New("chipcliff", "Task classification and dispatch client")
	serverURL = app.Flag("server", "Server base URL").Default("http://localhost:8000").Envar("CHIPCLIFF_SERVER").String()
	apiKey    = app.Flag("api-key", "API key sent as X-API-Key").Envar("CHIPCLIFF_API_KEY").String()

	submitCmd  = app.Command("submit", "Submit a task description for classification and execution")
	submitDesc = submitCmd.Arg("description", "Task description").Required().String()

	statusCmd = app.Command("status", "Show the status of a task")
	statusID  = statusCmd.Arg("id", "Task ID").Required().String()

	showCmd = app.Command("show", "Show task details")
	showID  = showCmd.Arg("id", "Task ID").Required().String()

	listCmd = app.Command("list", "List all tasks")

	chatCmd      = app.Command("chat", "Send a prompt to a configured provider")
	chatProvider = chatCmd.Arg("provider", "Provider name (openai, anthropic, deepseek)").Required().String()
	chatPrompt   = chatCmd.Arg("prompt", "Prompt text").Required().String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	c := &client{
		baseURL: *serverURL,
		apiKey:  *apiKey,
		http:    &http.Client{Timeout: 60 * time.Second},
	}

	var err error
	switch command {
	case submitCmd.FullCommand():
		err = handleSubmit(c, *submitDesc)
	case statusCmd.FullCommand():
		err = handleStatus(c, *statusID)
	case showCmd.FullCommand():
		err = handleShow(c, *showID)
	case listCmd.FullCommand():
		err = handleList(c)
	case chatCmd.FullCommand():
		err = handleChat(c, *chatProvider, *chatPrompt)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *client) do(method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%s (%s)", apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

type submitResponse struct {
	TaskID      string `json:"task_id"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

func handleSubmit(c *client, description string) error {
	var resp submitResponse
	err := c.do(http.MethodPost, "/api/task", map[string]string{"description": description}, &resp)
	if err != nil {
		return err
	}
	color.Green("Task %s assigned", resp.TaskID)
	fmt.Printf("  Category: %s\n", resp.Category)
	fmt.Printf("  Status:   %s\n", resp.Status)
	return nil
}

type statusResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

func handleStatus(c *client, id string) error {
	var resp statusResponse
	if err := c.do(http.MethodGet, "/api/tasks/"+id+"/status", nil, &resp); err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", resp.TaskID, colorStatus(resp.Status))
	return nil
}

func handleShow(c *client, id string) error {
	var t task.Task
	if err := c.do(http.MethodGet, "/api/tasks/"+id, nil, &t); err != nil {
		return err
	}
	printTask(&t)
	return nil
}

type listResponse struct {
	Tasks []*task.Task `json:"tasks"`
}

func handleList(c *client) error {
	var resp listResponse
	if err := c.do(http.MethodGet, "/api/tasks", nil, &resp); err != nil {
		return err
	}
	if len(resp.Tasks) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}
	for _, t := range resp.Tasks {
		fmt.Printf("%s  %-8s  %-11s  %s\n", t.ID, t.Category, colorStatus(string(t.Status)), t.Description)
	}
	return nil
}

type chatResponse struct {
	Provider string `json:"provider"`
	Response string `json:"response"`
}

func handleChat(c *client, provider, prompt string) error {
	var resp chatResponse
	err := c.do(http.MethodPost, "/api/chat/"+provider, map[string]string{"prompt": prompt}, &resp)
	if err != nil {
		return err
	}
	fmt.Println(resp.Response)
	return nil
}

func printTask(t *task.Task) {
	fmt.Printf("ID:          %s\n", t.ID)
	fmt.Printf("Description: %s\n", t.Description)
	fmt.Printf("Category:    %s\n", t.Category)
	fmt.Printf("Status:      %s\n", colorStatus(string(t.Status)))
	if t.Log != "" {
		fmt.Printf("Log:         %s\n", t.Log)
	}
	fmt.Printf("Created:     %s\n", t.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Updated:     %s\n", t.UpdatedAt.Format(time.RFC3339))
}

func colorStatus(status string) string {
	switch status {
	case string(task.StatusCompleted):
		return color.GreenString(status)
	case string(task.StatusFailed):
		return color.RedString(status)
	case string(task.StatusInProgress):
		return color.YellowString(status)
	default:
		return status
	}
}
