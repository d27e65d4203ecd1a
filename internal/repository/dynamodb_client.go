// Package repository persists users, trips and tasks in a single DynamoDB
// table: USER#<id>/PROFILE# for profiles, USER#<id>/TRIP#<uuid> for trips and
// TRIP#<id>/TASK#<uuid> for tasks. All operations are return-value signaled;
// deletes and toggles report false for missing rows instead of erroring.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"travelbot/internal/domain"
)

const (
	skProfile    = "PROFILE#"
	skPrefixTrip = "TRIP#"
	skPrefixTask = "TASK#"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Client wraps a DynamoDB table holding the travel planner's records.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

func userPK(userID int64) string {
	return "USER#" + strconv.FormatInt(userID, 10)
}

func tripPK(tripID string) string {
	return skPrefixTrip + tripID
}

// EnsureUser registers the user on first contact; later calls are no-ops.
func (c *Client) EnsureUser(ctx context.Context, userID int64, username, firstName string) (domain.User, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: skProfile},
		},
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("repository: EnsureUser get item: %w", err)
	}
	if out != nil && len(out.Item) > 0 {
		return itemToUser(userID, out.Item), nil
	}

	user := domain.User{
		ID:           userID,
		Username:     username,
		FirstName:    firstName,
		RegisteredAt: time.Now().UTC(),
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"PK":           &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK":           &types.AttributeValueMemberS{Value: skProfile},
			"username":     &types.AttributeValueMemberS{Value: username},
			"firstName":    &types.AttributeValueMemberS{Value: firstName},
			"registeredAt": &types.AttributeValueMemberS{Value: user.RegisteredAt.Format(time.RFC3339)},
		},
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("repository: EnsureUser put item: %w", err)
	}
	return user, nil
}

// CreateTrip persists a new trip owned by the user.
func (c *Client) CreateTrip(ctx context.Context, userID int64, destination string, start, end time.Time, notes string) (domain.Trip, error) {
	trip := domain.Trip{
		ID:          uuid.NewString(),
		UserID:      userID,
		Destination: destination,
		StartDate:   start,
		EndDate:     end,
		Notes:       notes,
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      tripItem(trip),
	})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repository: CreateTrip: %w", err)
	}
	return trip, nil
}

// ListTrips returns the user's trips ordered by start date descending.
func (c *Client) ListTrips(ctx context.Context, userID int64) ([]domain.Trip, error) {
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: userPK(userID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixTrip},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("repository: ListTrips query: %w", err)
	}

	trips := make([]domain.Trip, 0, len(out.Items))
	for _, item := range out.Items {
		trip, err := itemToTrip(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListTrips unmarshal: %w", err)
		}
		trips = append(trips, trip)
	}
	sort.Slice(trips, func(i, j int) bool {
		return trips[i].StartDate.After(trips[j].StartDate)
	})
	return trips, nil
}

// GetTrip fetches a single trip owned by the user, reporting false when it
// does not exist.
func (c *Client) GetTrip(ctx context.Context, userID int64, tripID string) (domain.Trip, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: skPrefixTrip + tripID},
		},
	})
	if err != nil {
		return domain.Trip{}, false, fmt.Errorf("repository: GetTrip get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Trip{}, false, nil
	}
	trip, err := itemToTrip(out.Item)
	if err != nil {
		return domain.Trip{}, false, fmt.Errorf("repository: GetTrip unmarshal: %w", err)
	}
	return trip, true, nil
}

// DeleteTrip removes the trip and all of its tasks. It reports false when
// the trip did not exist.
func (c *Client) DeleteTrip(ctx context.Context, userID int64, tripID string) (bool, error) {
	out, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: skPrefixTrip + tripID},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("repository: DeleteTrip: %w", err)
	}
	if out == nil || len(out.Attributes) == 0 {
		return false, nil
	}

	tasks, err := c.ListTasks(ctx, tripID)
	if err != nil {
		return false, fmt.Errorf("repository: DeleteTrip cascade: %w", err)
	}
	for _, task := range tasks {
		if _, err := c.DeleteTask(ctx, tripID, task.ID); err != nil {
			return false, fmt.Errorf("repository: DeleteTrip cascade: %w", err)
		}
	}
	return true, nil
}

// CreateTask persists a new task attached to a trip.
func (c *Client) CreateTask(ctx context.Context, tripID, description string) (domain.Task, error) {
	task := domain.Task{
		ID:          uuid.NewString(),
		TripID:      tripID,
		Description: description,
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      taskItem(task),
	})
	if err != nil {
		return domain.Task{}, fmt.Errorf("repository: CreateTask: %w", err)
	}
	return task, nil
}

// ListTasks returns all tasks of a trip.
func (c *Client) ListTasks(ctx context.Context, tripID string) ([]domain.Task, error) {
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: tripPK(tripID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixTask},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("repository: ListTasks query: %w", err)
	}

	tasks := make([]domain.Task, 0, len(out.Items))
	for _, item := range out.Items {
		task, err := itemToTask(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListTasks unmarshal: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// ToggleTaskComplete flips the completion flag, reporting false when the
// task does not exist.
func (c *Client) ToggleTaskComplete(ctx context.Context, tripID, taskID string) (bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: tripPK(tripID)},
			"SK": &types.AttributeValueMemberS{Value: skPrefixTask + taskID},
		},
	})
	if err != nil {
		return false, fmt.Errorf("repository: ToggleTaskComplete get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return false, nil
	}
	task, err := itemToTask(out.Item)
	if err != nil {
		return false, fmt.Errorf("repository: ToggleTaskComplete unmarshal: %w", err)
	}

	task.Completed = !task.Completed
	if _, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      taskItem(task),
	}); err != nil {
		return false, fmt.Errorf("repository: ToggleTaskComplete put item: %w", err)
	}
	return true, nil
}

// DeleteTask removes a task, reporting false when it did not exist.
func (c *Client) DeleteTask(ctx context.Context, tripID, taskID string) (bool, error) {
	out, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: tripPK(tripID)},
			"SK": &types.AttributeValueMemberS{Value: skPrefixTask + taskID},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("repository: DeleteTask: %w", err)
	}
	return out != nil && len(out.Attributes) > 0, nil
}

func tripItem(t domain.Trip) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":          &types.AttributeValueMemberS{Value: userPK(t.UserID)},
		"SK":          &types.AttributeValueMemberS{Value: skPrefixTrip + t.ID},
		"tripId":      &types.AttributeValueMemberS{Value: t.ID},
		"userId":      &types.AttributeValueMemberN{Value: strconv.FormatInt(t.UserID, 10)},
		"destination": &types.AttributeValueMemberS{Value: t.Destination},
		"startDate":   &types.AttributeValueMemberS{Value: t.StartDate.UTC().Format(time.RFC3339)},
		"endDate":     &types.AttributeValueMemberS{Value: t.EndDate.UTC().Format(time.RFC3339)},
		"notes":       &types.AttributeValueMemberS{Value: t.Notes},
	}
}

func taskItem(t domain.Task) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":          &types.AttributeValueMemberS{Value: tripPK(t.TripID)},
		"SK":          &types.AttributeValueMemberS{Value: skPrefixTask + t.ID},
		"taskId":      &types.AttributeValueMemberS{Value: t.ID},
		"tripId":      &types.AttributeValueMemberS{Value: t.TripID},
		"description": &types.AttributeValueMemberS{Value: t.Description},
		"completed":   &types.AttributeValueMemberBOOL{Value: t.Completed},
	}
}

func itemToUser(userID int64, item map[string]types.AttributeValue) domain.User {
	user := domain.User{ID: userID}
	user.Username, _ = strAttr(item, "username")
	user.FirstName, _ = strAttr(item, "firstName")
	if raw, err := strAttr(item, "registeredAt"); err == nil {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			user.RegisteredAt = ts
		}
	}
	return user
}

func itemToTrip(item map[string]types.AttributeValue) (domain.Trip, error) {
	id, err := strAttr(item, "tripId")
	if err != nil {
		return domain.Trip{}, err
	}
	userID, err := intAttr(item, "userId")
	if err != nil {
		return domain.Trip{}, err
	}
	destination, err := strAttr(item, "destination")
	if err != nil {
		return domain.Trip{}, err
	}
	start, err := timeAttr(item, "startDate")
	if err != nil {
		return domain.Trip{}, err
	}
	end, err := timeAttr(item, "endDate")
	if err != nil {
		return domain.Trip{}, err
	}
	notes, _ := strAttr(item, "notes") // allow empty

	return domain.Trip{
		ID:          id,
		UserID:      userID,
		Destination: destination,
		StartDate:   start,
		EndDate:     end,
		Notes:       notes,
	}, nil
}

func itemToTask(item map[string]types.AttributeValue) (domain.Task, error) {
	id, err := strAttr(item, "taskId")
	if err != nil {
		return domain.Task{}, err
	}
	tripID, err := strAttr(item, "tripId")
	if err != nil {
		return domain.Task{}, err
	}
	description, err := strAttr(item, "description")
	if err != nil {
		return domain.Task{}, err
	}
	completed := false
	if v, ok := item["completed"]; ok {
		if b, ok := v.(*types.AttributeValueMemberBOOL); ok {
			completed = b.Value
		}
	}

	return domain.Task{
		ID:          id,
		TripID:      tripID,
		Description: description,
		Completed:   completed,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

func timeAttr(item map[string]types.AttributeValue, key string) (time.Time, error) {
	raw, err := strAttr(item, key)
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return ts, nil
}
