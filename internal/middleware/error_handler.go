package middleware

import (
	apiError "clipshelf/internal/errors"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next() // Execute the handler first

		// detect any errors
		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err

			var apiErr *apiError.APIError

			// if it's our custom APIError
			if !errors.As(err, &apiErr) {
				apiErr = mapDomainError(err)
			}

			// LOGGING
			if apiErr.Status >= 500 {
				log.Printf("[ERROR] %v\n", apiErr.Internal)
			} else {
				log.Printf("[INFO] %s: %v\n", apiErr.Message, apiErr.Internal)
			}

			// Respond with JSON
			c.AbortWithStatusJSON(apiErr.Status, apiErr)
		}
	}
}

// mapDomainError translates typed domain errors coming out of the service
// layer; anything unrecognized is treated as internal.
func mapDomainError(err error) *apiError.APIError {
	var multiCat *apiError.MultipleCategoryError
	if errors.As(err, &multiCat) {
		return apiError.New(http.StatusUnprocessableEntity, multiCat.Error(), err)
	}

	var catConflict *apiError.CategoryConflictError
	if errors.As(err, &catConflict) {
		return apiError.New(http.StatusConflict, catConflict.Error(), err)
	}

	return apiError.Internal(err)
}
