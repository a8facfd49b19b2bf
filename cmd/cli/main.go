package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"adaptive-rag/pkg/config"
)

const version = "adaptive-rag cli 0.1.0"

var (
	bold   = color.New(color.Bold).SprintFunc()
	green  = color.New(color.FgGreen, color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run 执行子命令并返回退出码
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stdout)
		return 0
	}
	cmd, args := args[0], args[1:]
	c := newClient(apiBaseURL())

	switch cmd {
	case "version":
		fmt.Fprintln(stdout, version)
		return 0
	case "config":
		return runConfig(args, stdout, stderr)
	case "health":
		return printResult(c.Health())(stdout, stderr)
	case "stats":
		return printResult(c.Stats())(stdout, stderr)
	case "documents":
		return printResult(c.Documents())(stdout, stderr)
	case "formats":
		formats, err := c.Formats()
		if err != nil {
			return fail(stderr, "获取支持格式失败", err)
		}
		fmt.Fprintln(stdout, strings.Join(formats, " "))
		return 0
	case "query":
		if len(args) == 0 {
			fmt.Fprintln(stderr, "Usage: rag query <question>")
			return 1
		}
		res, err := c.Query(strings.Join(args, " "))
		if err != nil {
			return fail(stderr, "查询失败", err)
		}
		printAnswer(stdout, res)
		return 0
	case "upload":
		if len(args) == 0 {
			fmt.Fprintln(stderr, "Usage: rag upload <file>...")
			return 1
		}
		out, err := c.Upload(args)
		if err != nil {
			if out != nil {
				fmt.Fprintln(stderr, prettyJSON(out))
			}
			return fail(stderr, "上传失败", err)
		}
		fmt.Fprintln(stdout, green(fmt.Sprint(out["message"])))
		fmt.Fprintln(stdout, prettyJSON(out["stats"]))
		return 0
	case "clear":
		if err := c.Clear(); err != nil {
			return fail(stderr, "清空索引失败", err)
		}
		fmt.Fprintln(stdout, "Index cleared successfully")
		return 0
	case "memory":
		if len(args) > 0 && args[0] == "clear" {
			if err := c.ClearChatMemory(); err != nil {
				return fail(stderr, "清空对话记忆失败", err)
			}
			fmt.Fprintln(stdout, "Chat memory cleared")
			return 0
		}
		turns, err := c.ChatMemory()
		if err != nil {
			return fail(stderr, "获取对话记忆失败", err)
		}
		for _, t := range turns {
			fmt.Fprintf(stdout, "%s: %s\n", bold(t.Role), t.Content)
		}
		return 0
	case "chat":
		return runChat(c, stdin, stdout, stderr)
	default:
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: rag <command> [args]")
	fmt.Fprintln(w, "  version            - 显示版本")
	fmt.Fprintln(w, "  config [path]      - 显示配置概要")
	fmt.Fprintln(w, "  health             - 服务健康检查")
	fmt.Fprintln(w, "  stats              - 索引统计")
	fmt.Fprintln(w, "  documents          - 已入库文档列表")
	fmt.Fprintln(w, "  formats            - 支持的文件格式")
	fmt.Fprintln(w, "  query <question>   - 提问一次")
	fmt.Fprintln(w, "  upload <file>...   - 上传并索引文件")
	fmt.Fprintln(w, "  clear              - 清空文档索引")
	fmt.Fprintln(w, "  memory [clear]     - 查看/清空对话记忆")
	fmt.Fprintln(w, "  chat               - 交互式对话")
	fmt.Fprintln(w, "环境变量: RAG_API_URL（默认 http://localhost:4001）, RAG_API_TOKEN")
}

func printResult(v map[string]interface{}, err error) func(stdout, stderr io.Writer) int {
	return func(stdout, stderr io.Writer) int {
		if err != nil {
			return fail(stderr, "请求失败", err)
		}
		fmt.Fprintln(stdout, prettyJSON(v))
		return 0
	}
}

func fail(stderr io.Writer, msg string, err error) int {
	fmt.Fprintf(stderr, "%s: %v\n", red(msg), err)
	return 1
}

func printAnswer(w io.Writer, res *QueryResult) {
	fmt.Fprintln(w, res.Answer)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s  %s %.2f\n", yellow("method:"), res.Method, yellow("score:"), res.EvaluationScore)
	for i, s := range res.Sources {
		switch {
		case s.URL != "":
			fmt.Fprintf(w, "  [%d] %s (%s)\n", i+1, s.Title, s.URL)
		case s.FileName != "":
			fmt.Fprintf(w, "  [%d] %s #%s\n", i+1, s.FileName, s.ChunkID)
		}
	}
}

func runConfig(args []string, stdout, stderr io.Writer) int {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fail(stderr, "加载配置失败", err)
	}
	fmt.Fprintf(stdout, "api.addr=%s:%d\n", cfg.API.Host, cfg.API.Port)
	fmt.Fprintf(stdout, "model.defaults.llm=%s\n", cfg.Model.Defaults.LLM)
	fmt.Fprintf(stdout, "storage.vector.type=%s\n", cfg.Storage.Vector.Type)
	fmt.Fprintf(stdout, "storage.metadata.type=%s\n", cfg.Storage.Metadata.Type)
	fmt.Fprintf(stdout, "router.classifier.mode=%s\n", cfg.Router.Classifier.Mode)
	fmt.Fprintf(stdout, "search.enabled=%t\n", cfg.Search.APIKey != "")
	return 0
}

// runChat 交互式对话；/memory 查看记忆，/clear 清空记忆，exit 退出
func runChat(c *Client, stdin io.Reader, stdout, stderr io.Writer) int {
	fmt.Fprintln(stdout, green("Adaptive RAG Chat"))
	fmt.Fprintln(stdout, "输入问题后回车；/memory 查看记忆，/clear 清空记忆，exit 退出")
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, green("You: "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return 0
		case "/memory":
			turns, err := c.ChatMemory()
			if err != nil {
				fail(stderr, "获取对话记忆失败", err)
				continue
			}
			for _, t := range turns {
				fmt.Fprintf(stdout, "  %s: %s\n", bold(t.Role), t.Content)
			}
			continue
		case "/clear":
			if err := c.ClearChatMemory(); err != nil {
				fail(stderr, "清空对话记忆失败", err)
				continue
			}
			fmt.Fprintln(stdout, "Chat memory cleared")
			continue
		}

		res, err := c.Query(line)
		if err != nil {
			fail(stderr, "查询失败", err)
			continue
		}
		fmt.Fprint(stdout, cyan("Assistant: "))
		printAnswer(stdout, res)
		fmt.Fprintln(stdout)
	}
	return 0
}
