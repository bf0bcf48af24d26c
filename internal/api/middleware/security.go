package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders 安全 HTTP 头中间件
// 支付组件与 Cloudinary 截图需要额外放行对应域名
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'; "+
			"script-src 'self' https://checkout.razorpay.com; "+
			"frame-src https://api.razorpay.com; "+
			"img-src 'self' data: https://res.cloudinary.com; "+
			"style-src 'self' 'unsafe-inline'")
		c.Header("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

		c.Next()
	}
}
