// Package httpapp provides the HTTP server for Blogs Online.
//
// Authentication:
//
//	POST /jwt {"email": "..."} returns {"token": "..."}. Send it back as
//	"Authorization: Bearer <token>". A missing or bad token is a 401, a
//	valid token without the admin role on an admin route is a 403.
//
// Routes, grouped by who may call them:
//
//	public         GET    /  /healthz  /metrics  /announcement  /announcementCount
//	               GET    /addPost  /addPost/{id}  /postCount  /addTags
//	               GET    /allComment  /allComment/{postId}
//	               POST   /jwt  /users
//	authenticated  GET    /users/{email}  /users/admin/{email}
//	               GET    /emailLimit/{email}  /addEmail/{email}  /payments/{email}
//	               POST   /addPost  /allComment  /feedback  /payments  /create-payment-intent
//	               PATCH  /voteCount/{id}
//	               DELETE /addEmail/{id}
//	admin          GET    /users  /feedback  /filter/{email}  /restrictionMessage  /stats
//	               POST   /addTags  /announcement  /restrictionMessage
//	               PATCH  /users/admin/{id}
//	               DELETE /users/{id}
//
// Errors are JSON objects of the form {"message": "..."}. Write routes are
// rate limited per client address and answer 429 with Retry-After.
package httpapp
