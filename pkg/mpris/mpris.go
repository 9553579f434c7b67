// Package mpris 通过 D-Bus 从 MPRIS 播放器读取播放位置与当前曲目，
// 为歌词会话提供时钟来源。
package mpris

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
)

// Client 封装到某个 MPRIS 播放器的会话总线连接
type Client struct {
	conn    *dbus.Conn
	service string
	logger  *log.Logger
}

// NewClient 连接会话总线。service 形如 "org.mpris.MediaPlayer2.mpv"。
func NewClient(service string, logger *log.Logger) (*Client, error) {
	if service == "" {
		return nil, errors.New("empty MPRIS service name")
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	logger.Printf("Connected to session bus, polling MPRIS service %s", service)
	return &Client{conn: conn, service: service, logger: logger}, nil
}

// Close 断开总线连接
func (c *Client) Close() error {
	return c.conn.Close()
}

// Position 返回当前播放位置（秒）
func (c *Client) Position() (float64, error) {
	obj := c.conn.Object(c.service, mprisPath)
	prop, err := obj.GetProperty(mprisPlayerIface + ".Position")
	if err != nil {
		return 0, fmt.Errorf("failed to get position property: %w", err)
	}
	micros, ok := prop.Value().(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected position type %T", prop.Value())
	}
	if micros < 0 {
		return 0, nil
	}
	return float64(micros) / 1e6, nil
}

// TrackPath 返回当前曲目的本地文件路径。
// 曲目不是本地文件（如网络流）时返回错误。
func (c *Client) TrackPath() (string, error) {
	obj := c.conn.Object(c.service, mprisPath)
	prop, err := obj.GetProperty(mprisPlayerIface + ".Metadata")
	if err != nil {
		return "", fmt.Errorf("failed to get metadata property: %w", err)
	}
	meta, ok := prop.Value().(map[string]dbus.Variant)
	if !ok {
		return "", fmt.Errorf("unexpected metadata type %T", prop.Value())
	}
	variant, ok := meta["xesam:url"]
	if !ok {
		return "", errors.New("no xesam:url in metadata")
	}
	rawURL, ok := variant.Value().(string)
	if !ok || rawURL == "" {
		return "", errors.New("empty track url")
	}
	if !strings.HasPrefix(rawURL, "file://") {
		return "", fmt.Errorf("track is not a local file: %s", rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid track url %s: %w", rawURL, err)
	}
	return u.Path, nil
}
