package main

import (
	"abm/src/boot"
	"abm/src/middlewares"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	_ "github.com/joho/godotenv/autoload"
)

var jwtKey = []byte(os.Getenv("JWT_SECRET"))

const (
	apiPrefix string = "/api/v1"
)

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{os.Getenv("APP_HOST"), "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	group := g.Group(apiPrefix)
	return group
}

func generateJWT(email string, userId uint) (string, error) {
	claims := jwt.MapClaims{
		"username": email,
		"sub":      strconv.Itoa(int(userId)),
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

func main() {
	d := boot.InitDb()
	bookings, disputes, processor := boot.InitServices(d)

	boot.InitBroker()
	boot.InitScheduler(processor)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		log.Printf("Received signal %s, stopping task processor\n", sig)
		boot.StopScheduler(processor)
		os.Exit(0)
	}()

	router := setupRouter()
	authorized := apiv1Group(router)
	authorized.Use(middlewares.AuthMiddleware)
	bookingHandlers(authorized, bookings)
	disputeHandlers(authorized, disputes)
	notificationHandlers(authorized)

	admin := apiv1Group(router)
	admin.Use(middlewares.AuthMiddleware, middlewares.AdminOnly)
	disputeAdminHandlers(admin, disputes)
	adminHandlers(admin, bookings)

	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}
	if err := router.Run(fmt.Sprintf(":%s", port)); err != nil {
		log.Fatalf("Failed to start server: %s", err)
	}
}
