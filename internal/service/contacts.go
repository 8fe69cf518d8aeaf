package service

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/address-book/internal/apperror"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
	"gitlab.com/dirk.krummacker/address-book/internal/query"
)

// listContacts responds with the contacts of the caller as JSON, in the order they were
// created.
//
// The URL parameter 'limit' specifies how many contacts are returned, 100 if omitted. The URL
// parameter 'skip' specifies how many contacts are skipped in the beginning. Together they
// implement paging.
//
// REST API calls:
//
//	> curl -H "Authorization: Bearer $TOKEN" "http://localhost:8080/api/contacts"
//	> curl -H "Authorization: Bearer $TOKEN" "http://localhost:8080/api/contacts?skip=20&limit=10"
func (s *Server) listContacts(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	contacts, err := s.contacts.List(c.Request.Context(), callerFrom(c), page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, contacts)
}

// searchContacts responds with the contacts whose name, surname, email or phone contains the
// URL parameter 'q', ignoring case. An empty or missing 'q' matches every contact. No match
// is answered with an empty list.
//
// REST API call:
//
//	> curl -H "Authorization: Bearer $TOKEN" "http://localhost:8080/api/contacts/search?q=muster"
func (s *Server) searchContacts(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	contacts, err := s.contacts.Search(c.Request.Context(), callerFrom(c), c.Query("q"), page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, contacts)
}

// upcomingBirthdays responds with the contacts that have their birthday within the next
// 'days' days, today included. 'days' is sent in the JSON body and must be between 0 and 366.
//
// REST API call:
//
//	> curl -H "Authorization: Bearer $TOKEN" http://localhost:8080/api/contacts/birthdays --request "POST" --data '{"days": 7}'
func (s *Server) upcomingBirthdays(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	var body model.BirthdayQuery
	if !bindJSON(c, &body) {
		return
	}
	if body.Days == nil {
		abortWithError(c, apperror.Invalid("days", "field required"))
		return
	}
	contacts, err := s.contacts.UpcomingBirthdays(c.Request.Context(), callerFrom(c), *body.Days, page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, contacts)
}

// createContact stores the contact specified in the request's JSON for the caller. It responds
// with the full contact data including the newly assigned id.
//
// Example REST API call:
//
//	> curl -H "Authorization: Bearer $TOKEN" http://localhost:8080/api/contacts --request "POST" --include --header "Content-Type: application/json" --data '{"name": "Erika", "surname": "Mustermann", "email": "erika@example.com", "phone": "+4908154711", "birthday": "1969-03-02"}'
func (s *Server) createContact(c *gin.Context) {
	var in model.ContactInput
	if !bindJSON(c, &in) {
		return
	}
	contact, err := s.contacts.Create(c.Request.Context(), callerFrom(c), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, contact)
}

// findContactByID locates the contact of the caller whose ID value matches the id parameter
// of the request URL, then returns that contact as a response.
//
// Example REST API call:
//
//	> curl -H "Authorization: Bearer $TOKEN" http://localhost:8080/api/contacts/56
func (s *Server) findContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	contact, err := s.contacts.Get(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, contact)
}

// updateContactByID replaces all fields of the contact whose ID value matches the id
// parameter of the request URL with the values of the JSON, and responds with the new
// version of the contact. A note that is not sent is removed.
//
// Example REST API call:
//
//	> curl -H "Authorization: Bearer $TOKEN" http://localhost:8080/api/contacts/56 --request "PUT" --include --header "Content-Type: application/json" --data '{"name": "Erika", "surname": "Musterfrau", "email": "erika@example.com", "phone": "+4908154711", "birthday": "1969-03-02"}'
func (s *Server) updateContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in model.ContactInput
	if !bindJSON(c, &in) {
		return
	}
	contact, err := s.contacts.Update(c.Request.Context(), callerFrom(c), id, in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, contact)
}

// deleteContactByID deletes the contact whose ID value matches the id parameter of the
// request URL. It responds with an empty body.
//
// Example REST API call:
//
//	> curl -H "Authorization: Bearer $TOKEN" http://localhost:8080/api/contacts/56 --request "DELETE"
func (s *Server) deleteContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, err := s.contacts.Delete(c.Request.Context(), callerFrom(c), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseID reads the id path parameter. An id that is not a positive number cannot belong
// to any contact and is answered with 404.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortWithError(c, apperror.NotFound("contact"))
		return 0, false
	}
	return id, true
}

// parsePage reads the 'skip' and 'limit' URL parameters.
func parsePage(c *gin.Context) (query.Page, bool) {
	skip, errSkip := strconv.Atoi(c.DefaultQuery("skip", strconv.Itoa(query.DefaultSkip)))
	limit, errLimit := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(query.DefaultLimit)))
	var fields []apperror.FieldError
	if errSkip != nil {
		fields = append(fields, apperror.FieldError{Field: "skip", Message: "must be an integer"})
	}
	if errLimit != nil {
		fields = append(fields, apperror.FieldError{Field: "limit", Message: "must be an integer"})
	}
	if len(fields) > 0 {
		abortWithError(c, apperror.ValidationFailed(fields...))
		return query.Page{}, false
	}
	page, err := query.NewPage(skip, limit)
	if err != nil {
		abortWithError(c, err)
		return query.Page{}, false
	}
	return page, true
}
