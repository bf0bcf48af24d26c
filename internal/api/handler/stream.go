package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

const streamKeepAlive = 25 * time.Second

// serveStream 以 SSE 推送 ch 中的消息，直到通道关闭或客户端断开
// 返回前调用 cancel 释放订阅
func serveStream[T any](c *gin.Context, event string, ch <-chan T, cancel func()) {
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-ch:
			if !ok {
				// 订阅被服务端关闭（登出或消费过慢），通知客户端重连
				c.SSEvent("close", "")
				return false
			}
			c.SSEvent(event, msg)
			return true
		case <-ticker.C:
			c.SSEvent("ping", "")
			return true
		}
	})
}
