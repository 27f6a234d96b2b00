package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

var baseURL = "http://localhost:3000/api"

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

// Pretty print JSON helper
func prettyPrint(raw json.RawMessage) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url string, body interface{}) (*http.Response, envelope, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, envelope{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, envelope{}, err
	}
	defer resp.Body.Close()

	var env envelope
	err = json.NewDecoder(resp.Body).Decode(&env)
	return resp, env, err
}

func step(title, method, url string, body interface{}) envelope {
	color.Yellow("\n%s", title)
	resp, env, err := sendRequest(method, url, body)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	if resp.StatusCode >= 400 {
		color.Red("Status: %s (%s)", resp.Status, env.Message)
	} else {
		color.Green("Status: %s", resp.Status)
	}
	if len(env.Data) > 0 {
		prettyPrint(env.Data)
	}
	return env
}

func main() {
	if len(os.Args) > 1 {
		baseURL = os.Args[1]
	}
	color.Cyan("🚀 Starting Assistant Studio API smoke test (%s)\n", baseURL)

	step("1. List assistants", "GET", "/assistant/v1", nil)

	created := step("2. Create assistant", "POST", "/assistant/v1", map[string]interface{}{
		"name":            "Asistente de Pruebas",
		"language":        "Español",
		"tone":            "Casual",
		"response_length": map[string]int{"short": 40, "medium": 40, "long": 20},
		"audio_enabled":   true,
	})
	var assistant struct {
		Id string `json:"id"`
	}
	if err := json.Unmarshal(created.Data, &assistant); err != nil || assistant.Id == "" {
		color.Red("Create returned no id, aborting")
		os.Exit(1)
	}
	fmt.Printf("Created Assistant ID: %s\n", assistant.Id)

	step("3. Save rules", "PUT", "/assistant/v1/"+assistant.Id+"/rules", map[string]string{
		"rules": "Responde siempre con una pregunta de seguimiento.",
	})

	step("4. Send chat message", "POST", "/chat/v1/"+assistant.Id+"/messages", map[string]string{
		"text": "Hola, ¿qué puedes hacer?",
	})

	color.Cyan("Waiting for the reply...")
	time.Sleep(3 * time.Second)
	step("5. Chat history", "GET", "/chat/v1/"+assistant.Id+"/messages", nil)

	// the mock store refuses about one delete in ten; retry to show rollback
	for attempt := 1; attempt <= 5; attempt++ {
		resp, env, err := sendRequest("DELETE", "/assistant/v1/"+assistant.Id, nil)
		if err != nil {
			color.Red("Failed: %v", err)
			os.Exit(1)
		}
		if resp.StatusCode == http.StatusServiceUnavailable {
			color.Magenta("6.%d Delete rolled back: %s", attempt, env.Message)
			continue
		}
		color.Green("6.%d Delete: %s", attempt, resp.Status)
		break
	}

	step("7. List assistants", "GET", "/assistant/v1", nil)
	color.Cyan("\n✅ Smoke test finished")
}
