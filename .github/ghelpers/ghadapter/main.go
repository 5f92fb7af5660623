package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
)

// flatten turns nested objects and arrays into underscore-joined keys, so
// {"offset":{"x":1}} becomes offset_x=1 and [{"url":"a"}] becomes 0_url=a.
func flatten(prefix string, value any, result map[string]string) {
	join := func(key string) string {
		if prefix == "" {
			return key
		}
		return prefix + "_" + key
	}

	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			flatten(join(key), child, result)
		}
	case []any:
		for i, child := range v {
			flatten(join(strconv.Itoa(i)), child, result)
		}
	case nil:
		result[prefix] = ""
	default:
		result[prefix] = fmt.Sprintf("%v", v)
	}
}

func write(w io.Writer, output []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(output))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return err
	}

	result := make(map[string]string)
	flatten("", value, result)

	keys := make([]string, 0, len(result))
	for key := range result {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, err := fmt.Fprintf(w, "%s=%s\n", key, result[key]); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if len(os.Args) < 2 {
		os.Exit(1)
	}

	var args []string
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}

	cmd := exec.Command(os.Args[1], args...)
	cmd.Stdin = os.Stdin
	cmd.Stderr = os.Stderr

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		os.Exit(1)
	}

	githubOutput := os.Getenv("GITHUB_OUTPUT")
	if githubOutput == "" {
		return
	}

	f, err := os.OpenFile(githubOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	_ = write(f, output)
}
