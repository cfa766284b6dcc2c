// Package dynamo implements record.Store on a single DynamoDB table. Records
// share the table and are distinguished by their composite id prefix
// (USER#<email>, COURSE#<courseId>, COURSE_TEMPLATE#<templateId>). All
// conditional semantics map onto DynamoDB condition expressions.
package dynamo

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/skilltrack/core"
	"github.com/trezcool/skilltrack/core/record"
)

const (
	userPrefix     = "USER#"
	coursePrefix   = "COURSE#"
	templatePrefix = "COURSE_TEMPLATE#"

	idAttr = "ID"
)

type Store struct {
	client *dynamodb.Client
	table  string
}

var _ record.Store = (*Store)(nil)

// NewStore opens a pooled client against the configured table. The client is
// initialized once per process and is read-only thereafter; per-request state
// lives entirely in the store.
func NewStore(ctx context.Context, conf *core.Config) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(conf.Dynamo.Region),
	}
	if conf.Dynamo.Endpoint != "" {
		// local dynamodb; any static credentials will do
		opts = append(opts,
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")),
		)
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading AWS config")
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if conf.Dynamo.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Dynamo.Endpoint)
		}
	})
	return &Store{client: client, table: conf.Dynamo.Table}, nil
}

// EnsureTable creates the table if it does not exist and waits until it is
// active. Used by out-of-band tooling, never by request handling.
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(idAttr), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(idAttr), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return pkgerrors.Wrap(err, "creating table")
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	return pkgerrors.Wrap(
		waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}, 2*time.Minute),
		"waiting for table",
	)
}

func (s *Store) GetUser(ctx context.Context, email string) (record.User, error) {
	item, err := s.getItem(ctx, userPrefix+email)
	if err != nil {
		return record.User{}, err
	}

	var usr record.User
	if err = attributevalue.UnmarshalMap(item, &usr); err != nil {
		return record.User{}, unavailable("unmarshalling user", err)
	}
	usr.Email = email
	sort.Strings(usr.Roles)
	sort.Strings(usr.TeachingTheseCourses)
	if usr.Courses == nil {
		usr.Courses = make(map[string]record.UserCourse)
	}
	return usr, nil
}

func (s *Store) CreateUser(ctx context.Context, usr record.User) error {
	return s.putNew(ctx, userPrefix+usr.Email, usr)
}

func (s *Store) GetCourse(ctx context.Context, id string) (record.Course, error) {
	item, err := s.getItem(ctx, coursePrefix+id)
	if err != nil {
		return record.Course{}, err
	}

	var crs record.Course
	if err = attributevalue.UnmarshalMap(item, &crs); err != nil {
		return record.Course{}, unavailable("unmarshalling course", err)
	}
	crs.ID = id
	sort.Strings(crs.Teachers)
	sort.Strings(crs.Students)
	return crs, nil
}

func (s *Store) CreateCourse(ctx context.Context, crs record.Course) error {
	return s.putNew(ctx, coursePrefix+crs.ID, crs)
}

func (s *Store) GetTemplate(ctx context.Context, id string) (record.CourseTemplate, error) {
	item, err := s.getItem(ctx, templatePrefix+id)
	if err != nil {
		return record.CourseTemplate{}, err
	}

	var tmpl record.CourseTemplate
	if err = attributevalue.UnmarshalMap(item, &tmpl); err != nil {
		return record.CourseTemplate{}, unavailable("unmarshalling template", err)
	}
	tmpl.ID = id
	return tmpl, nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]record.CourseTemplate, error) {
	var tmpls []record.CourseTemplate

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.table),
		FilterExpression:          aws.String("begins_with(#id, :prefix)"),
		ExpressionAttributeNames:  map[string]string{"#id": idAttr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":prefix": str(templatePrefix)},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, unavailable("scanning templates", err)
		}
		for _, item := range page.Items {
			var tmpl record.CourseTemplate
			if err = attributevalue.UnmarshalMap(item, &tmpl); err != nil {
				return nil, unavailable("unmarshalling template", err)
			}
			tmpl.ID = strings.TrimPrefix(itemID(item), templatePrefix)
			tmpls = append(tmpls, tmpl)
		}
	}
	sort.Slice(tmpls, func(i, j int) bool { return tmpls[i].ID < tmpls[j].ID })
	return tmpls, nil
}

func (s *Store) PutTemplate(ctx context.Context, tmpl record.CourseTemplate) error {
	item, err := marshalItem(templatePrefix+tmpl.ID, tmpl)
	if err != nil {
		return err
	}
	if _, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return unavailable("putting template", err)
	}
	return nil
}

func (s *Store) PutUserCourse(ctx context.Context, email, courseID string, crs record.UserCourse) error {
	val, err := attributevalue.Marshal(crs)
	if err != nil {
		return unavailable("marshalling snapshot", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 key(userPrefix + email),
		UpdateExpression:    aws.String("SET #courses.#course = :crs"),
		ConditionExpression: aws.String("attribute_exists(#id) AND attribute_not_exists(#courses.#course)"),
		ExpressionAttributeNames: map[string]string{
			"#id":      idAttr,
			"#courses": "Courses",
			"#course":  courseID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{":crs": val},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			// the single condition cannot tell a missing user from an existing
			// snapshot; a follow-up read settles it
			return s.classifyUserFailure(ctx, email)
		}
		return unavailable("writing snapshot", err)
	}
	return nil
}

func (s *Store) AddStudentToRoster(ctx context.Context, courseID, email string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       key(coursePrefix + courseID),
		UpdateExpression:          aws.String("ADD Students :new"),
		ConditionExpression:       aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames:  map[string]string{"#id": idAttr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":new": stringSet(email)},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return record.ErrNotFound
		}
		return unavailable("updating roster", err)
	}
	return nil
}

func (s *Store) SetSkillCheckedOff(ctx context.Context, email, courseID, skill, checkedOffBy string, at time.Time) error {
	atVal, err := attributevalue.Marshal(at)
	if err != nil {
		return unavailable("marshalling timestamp", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key:       key(userPrefix + email),
		UpdateExpression: aws.String(
			"SET #courses.#course.#skills.#skill.CheckedOff = :true, " +
				"#courses.#course.#skills.#skill.CheckedOffAt = :at, " +
				"#courses.#course.#skills.#skill.CheckedOffBy = :by",
		),
		ConditionExpression: aws.String("attribute_exists(#courses.#course.#skills.#skill)"),
		ExpressionAttributeNames: map[string]string{
			"#courses": "Courses",
			"#course":  courseID,
			"#skills":  "Skills",
			"#skill":   skill,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
			":at":   atVal,
			":by":   str(checkedOffBy),
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			// missing user and missing skill key both fail the condition
			return s.classifyUserFailure(ctx, email)
		}
		return unavailable("checking skill off", err)
	}
	return nil
}

func (s *Store) AddTeachingCourse(ctx context.Context, email, courseID string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       key(userPrefix + email),
		UpdateExpression:          aws.String("ADD TeachingTheseCourses :new"),
		ConditionExpression:       aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames:  map[string]string{"#id": idAttr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":new": stringSet(courseID)},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return record.ErrNotFound
		}
		return unavailable("updating teaching courses", err)
	}
	return nil
}

func (s *Store) AddRole(ctx context.Context, email, role string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       key(userPrefix + email),
		UpdateExpression:          aws.String("ADD #roles :new"),
		ConditionExpression:       aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames:  map[string]string{"#id": idAttr, "#roles": "Roles"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":new": stringSet(role)},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return record.ErrNotFound
		}
		return unavailable("updating roles", err)
	}
	return nil
}

// helpers

func (s *Store) getItem(ctx context.Context, id string) (map[string]types.AttributeValue, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       key(id),
	})
	if err != nil {
		return nil, unavailable("getting item", err)
	}
	if out.Item == nil {
		return nil, record.ErrNotFound
	}
	return out.Item, nil
}

// putNew writes a record under the condition that its id does not exist yet.
func (s *Store) putNew(ctx context.Context, id string, rec interface{}) error {
	item, err := marshalItem(id, rec)
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": idAttr},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return record.ErrConflict
		}
		return unavailable("putting item", err)
	}
	return nil
}

// classifyUserFailure resolves an ambiguous conditional-check failure on a
// user row: ErrNotFound when the record is absent, ErrPreconditionFailed when
// the record exists but the condition did not hold.
func (s *Store) classifyUserFailure(ctx context.Context, email string) error {
	if _, err := s.GetUser(ctx, email); err != nil {
		if pkgerrors.Cause(err) == record.ErrNotFound {
			return record.ErrNotFound
		}
		return err
	}
	return record.ErrPreconditionFailed
}

func marshalItem(id string, rec interface{}) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, unavailable("marshalling item", err)
	}
	item[idAttr] = str(id)
	return item, nil
}

func itemID(item map[string]types.AttributeValue) string {
	if v, ok := item[idAttr].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{idAttr: str(id)}
}

func str(v string) *types.AttributeValueMemberS {
	return &types.AttributeValueMemberS{Value: v}
}

func stringSet(vals ...string) *types.AttributeValueMemberSS {
	return &types.AttributeValueMemberSS{Value: vals}
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func unavailable(op string, err error) error {
	return pkgerrors.Wrapf(record.ErrUnavailable, "%s: %v", op, err)
}
