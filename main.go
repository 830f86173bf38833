package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"pawmart/cart"
	"pawmart/checkout"
	"pawmart/db"
	"pawmart/localcache"
	"pawmart/mq"
	"pawmart/notify"
	"pawmart/orders"
	"pawmart/products"
	"pawmart/ratelim"
	"pawmart/remstore"
	"pawmart/routes"
	"pawmart/stock"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		duration := time.Since(start)
		log.Printf("%s %s from %s – %v", r.Method, r.RequestURI, r.RemoteAddr, duration)
	})
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func setupRouter(rateLimiter *ratelim.RateLimiter, hub *notify.Hub) *httprouter.Router {
	router := httprouter.New()
	router.GET("/health", Index)

	store := remstore.NewMongo(db.Database)
	guard := stock.NewGuard(store)
	carts := cart.NewStore(store, localcache.NewRedis(), guard, hub, cart.DefaultDebounce)
	orchestrator := checkout.NewOrchestrator(store, guard, carts, hub)
	manager := orders.NewManager(store, guard, hub)

	routes.AddAuthRoutes(router, rateLimiter)
	routes.AddCartRoutes(router, rateLimiter, cart.NewHandlers(carts))
	routes.AddCheckoutRoutes(router, rateLimiter, checkout.NewHandlers(orchestrator))
	routes.AddOrderRoutes(router, rateLimiter, orders.NewHandlers(manager))
	routes.AddProductRoutes(router, rateLimiter, products.NewHandlers(guard))
	routes.AddFeedbackRoutes(router, rateLimiter)
	routes.AddNotificationRoutes(router, hub)

	router.ServeFiles("/productpic/*filepath", http.Dir("./uploads/products"))

	return router
}

func main() {
	// load .env if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	// read port
	port := os.Getenv("PORT")
	if port == "" {
		port = ":8080"
	} else if port[0] != ':' {
		port = ":" + port
	}

	rateLimiter := ratelim.NewRateLimiter()
	hub := notify.NewHub()

	router := setupRouter(rateLimiter, hub)

	go mq.StartEventWorker()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Device-ID"},
		AllowCredentials: true,
	})

	handler := c.Handler(securityHeaders(loggingMiddleware(router)))

	server := &http.Server{
		Addr:              port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Listening on %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}

	if err := db.Client.Disconnect(ctx); err != nil {
		log.Printf("Mongo disconnect error: %v", err)
	}
	log.Println("Server stopped")
}
