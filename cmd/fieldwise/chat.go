package main

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/xiaot623/fieldwise/internal/logger"
	"github.com/xiaot623/fieldwise/internal/transport/ws"
)

// Client is a terminal chat client for the websocket channel.
type Client struct {
	conn      *websocket.Conn
	sessionID string
	out       io.Writer
	done      chan struct{}
}

// NewClient connects to the websocket server at addr.
func NewClient(addr string, out io.Writer) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	return &Client{
		conn: conn,
		out:  out,
		done: make(chan struct{}),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	close(c.done)
	return c.conn.Close()
}

// SendHello opens or resumes a session and waits for hello_ack.
func (c *Client) SendHello(sessionID string) error {
	msg := ws.HelloMessage{
		BaseMessage: ws.BaseMessage{
			Type:      ws.TypeHello,
			Ts:        time.Now().UnixMilli(),
			SessionID: sessionID,
		},
		ClientMeta: map[string]string{
			"client": "fieldwise-cli",
		},
	}

	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write hello: %w", err)
	}

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read hello_ack: %w", err)
	}

	var base ws.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return fmt.Errorf("unmarshal hello_ack: %w", err)
	}

	if base.Type == ws.TypeError {
		var errMsg ws.ErrorMessage
		json.Unmarshal(data, &errMsg)
		return fmt.Errorf("hello failed: %s - %s", errMsg.Code, errMsg.Message)
	}

	if base.Type != ws.TypeHelloAck {
		return fmt.Errorf("expected hello_ack, got: %s", base.Type)
	}

	c.sessionID = base.SessionID
	return nil
}

// SendText sends one typed answer.
func (c *Client) SendText(text string) error {
	return c.conn.WriteJSON(ws.UserMessage{
		BaseMessage: ws.BaseMessage{
			Type:      ws.TypeUserMessage,
			Ts:        time.Now().UnixMilli(),
			SessionID: c.sessionID,
		},
		Text: text,
	})
}

// SendAudioFile sends a recorded answer as a data URL.
func (c *Client) SendAudioFile(path string) error {
	dataURL, err := audioDataURL(path)
	if err != nil {
		return err
	}
	return c.conn.WriteJSON(ws.UserMessage{
		BaseMessage: ws.BaseMessage{
			Type:      ws.TypeUserMessage,
			Ts:        time.Now().UnixMilli(),
			SessionID: c.sessionID,
		},
		Audio: dataURL,
	})
}

// ReadMessages prints server messages until the connection closes.
func (c *Client) ReadMessages() {
	for {
		select {
		case <-c.done:
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					logger.Debug("read error", "error", err)
				}
				return
			}
			c.print(data)
		}
	}
}

func (c *Client) print(data []byte) {
	var base ws.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		logger.Warn("unmarshal error", "error", err)
		return
	}

	switch base.Type {
	case ws.TypeAssistant:
		var msg ws.AssistantMessage
		json.Unmarshal(data, &msg)
		fmt.Fprintf(c.out, "\nFieldwise: %s\n", msg.Text)
	case ws.TypeTranscript:
		var msg ws.TranscriptMessage
		json.Unmarshal(data, &msg)
		fmt.Fprintf(c.out, "\n(heard) %s\n", msg.Text)
	case ws.TypeReportFiled:
		var msg ws.ReportFiledMessage
		json.Unmarshal(data, &msg)
		fmt.Fprintf(c.out, "\n[report #%d filed]\n", msg.ReportID)
	case ws.TypeError:
		var msg ws.ErrorMessage
		json.Unmarshal(data, &msg)
		fmt.Fprintf(c.out, "\n[%s] %s\n", msg.Code, msg.Message)
	default:
		fmt.Fprintf(c.out, "\n[%s] %s\n", base.Type, string(data))
	}
}

func (app *App) addChatCommand(rootCmd *cobra.Command) {
	var addr, sessionID string

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Fill a report from the terminal over the websocket channel",
		Long: `chat connects to a running fieldwise server. Type answers and press Enter.
"/audio <file>" sends a recording; "/quit" exits.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(addr, sessionID, os.Stdin, cmd.OutOrStdout())
		},
	}
	chatCmd.Flags().StringVar(&addr, "addr", fmt.Sprintf("ws://localhost:%d%s", app.Config.HTTPPort, ws.Path), "WebSocket server address")
	chatCmd.Flags().StringVar(&sessionID, "session", "", "Resume this session id")
	rootCmd.AddCommand(chatCmd)
}

func runChat(addr, sessionID string, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Connecting to %s...\n", addr)

	client, err := NewClient(addr, out)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.SendHello(sessionID); err != nil {
		return err
	}

	fmt.Fprintf(out, "Session established: %s\n", client.sessionID)
	fmt.Fprintln(out, `Commands: "/audio <file>" to send a recording, "/quit" to exit`)

	go client.ReadMessages()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-interrupt:
			fmt.Fprintln(out, "\nInterrupted")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			input := strings.TrimSpace(line)
			switch {
			case input == "":
				continue
			case input == "/quit":
				fmt.Fprintln(out, "Bye!")
				return nil
			case strings.HasPrefix(input, "/audio "):
				err = client.SendAudioFile(strings.TrimSpace(strings.TrimPrefix(input, "/audio ")))
			default:
				err = client.SendText(input)
			}
			if err != nil {
				fmt.Fprintf(out, "send error: %v\n", err)
			}
		}
	}
}

// audioDataURL reads a recording into a base64 data URL typed by its
// extension.
func audioDataURL(path string) (string, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	mime := "audio/wav"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".webm":
		mime = "audio/webm"
	case ".ogg":
		mime = "audio/ogg"
	case ".mp3":
		mime = "audio/mpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(audio), nil
}
