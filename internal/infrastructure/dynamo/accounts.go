package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-anon-inbox/internal/config"
	"github.com/go-anon-inbox/internal/domain"
)

// maxRemoveAttempts bounds how often RemoveMessage re-reads the inbox when a
// concurrent writer shifts the list between the read and the conditional remove.
const maxRemoveAttempts = 4

// emailClaim reserves an email address for exactly one handle.
// PK: email
type emailClaim struct {
	Email  string `dynamodbav:"email"`
	Handle string `dynamodbav:"handle"`
}

// AccountRepo stores each account, inbox included, as one item keyed by handle.
// Email uniqueness is enforced through a separate claim table written in the
// same transaction as the account.
type AccountRepo struct {
	client      *dynamodb.Client
	accounts    string
	emailClaims string
	now         func() time.Time
}

func NewAccountRepo(client *dynamodb.Client, tables config.DynamoTables) *AccountRepo {
	return &AccountRepo{
		client:      client,
		accounts:    tables.Accounts,
		emailClaims: tables.AccountEmails,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (r *AccountRepo) GetByHandle(ctx context.Context, handle string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.accounts),
		Key:            strKey(fieldHandle, handle),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("handle %q: %w", handle, domain.ErrAccountNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, fmt.Errorf("unmarshal account: %w", err)
	}
	return &a, nil
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.emailClaims),
		Key:            strKey(fieldEmail, email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get email claim: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("email lookup: %w", domain.ErrAccountNotFound)
	}
	var claim emailClaim
	if err := attributevalue.UnmarshalMap(out.Item, &claim); err != nil {
		return nil, fmt.Errorf("unmarshal email claim: %w", err)
	}
	a, err := r.GetByHandle(ctx, claim.Handle)
	if err != nil {
		return nil, err
	}
	if a.Email != email {
		return nil, fmt.Errorf("email lookup: stale claim: %w", domain.ErrAccountNotFound)
	}
	return a, nil
}

// CreatePending writes a new unverified account and its email claim in one
// transaction, deleting the displaced pending accounts and their claims.
// Every displaced item is conditioned on still being unverified, so a signup
// can never replace an account that was verified in the meantime.
func (r *AccountRepo) CreatePending(ctx context.Context, acct *domain.Account, displaced []*domain.Account) error {
	items, onFail, err := r.signupTransaction(acct, displaced)
	if err != nil {
		return err
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return cancellationError(tce.CancellationReasons, onFail)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// signupTransaction builds the transaction items for CreatePending. onFail[i]
// is the error reported when item i fails its condition.
func (r *AccountRepo) signupTransaction(acct *domain.Account, displaced []*domain.Account) ([]types.TransactWriteItem, []error, error) {
	item, err := attributevalue.MarshalMap(acct)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal account: %w", err)
	}
	claim, err := attributevalue.MarshalMap(emailClaim{Email: acct.Email, Handle: acct.Handle})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal email claim: %w", err)
	}

	var handleOwner, emailOwner *domain.Account
	seen := make(map[string]bool, len(displaced))
	unique := make([]*domain.Account, 0, len(displaced))
	for _, d := range displaced {
		if d == nil || seen[d.Handle] {
			continue
		}
		seen[d.Handle] = true
		unique = append(unique, d)
		if d.Handle == acct.Handle {
			handleOwner = d
		}
		if d.Email == acct.Email {
			emailOwner = d
		}
	}

	putAccount := &types.Put{
		TableName:                aws.String(r.accounts),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#h)"),
		ExpressionAttributeNames: map[string]string{"#h": fieldHandle},
	}
	onFail := []error{domain.ErrDuplicateHandle}
	if handleOwner != nil {
		putAccount.ConditionExpression = aws.String("attribute_exists(#h) AND #v = :false")
		putAccount.ExpressionAttributeNames["#v"] = fieldIsVerified
		putAccount.ExpressionAttributeValues = map[string]types.AttributeValue{":false": boolValue(false)}
		onFail[0] = domain.ErrSignupConflict
	}

	putClaim := &types.Put{
		TableName:                aws.String(r.emailClaims),
		Item:                     claim,
		ConditionExpression:      aws.String("attribute_not_exists(#e)"),
		ExpressionAttributeNames: map[string]string{"#e": fieldEmail},
	}
	onFail = append(onFail, domain.ErrDuplicateEmail)
	if emailOwner != nil {
		putClaim.ConditionExpression = aws.String("#h = :owner")
		putClaim.ExpressionAttributeNames = map[string]string{"#h": fieldHandle}
		putClaim.ExpressionAttributeValues = map[string]types.AttributeValue{":owner": strValue(emailOwner.Handle)}
		onFail[1] = domain.ErrSignupConflict
	}

	items := []types.TransactWriteItem{{Put: putAccount}, {Put: putClaim}}
	for _, d := range unique {
		if d.Handle != acct.Handle {
			items = append(items, types.TransactWriteItem{Delete: &types.Delete{
				TableName:                 aws.String(r.accounts),
				Key:                       strKey(fieldHandle, d.Handle),
				ConditionExpression:       aws.String("#v = :false"),
				ExpressionAttributeNames:  map[string]string{"#v": fieldIsVerified},
				ExpressionAttributeValues: map[string]types.AttributeValue{":false": boolValue(false)},
			}})
			onFail = append(onFail, domain.ErrSignupConflict)
		}
		if d.Email != acct.Email {
			items = append(items, types.TransactWriteItem{Delete: &types.Delete{
				TableName:                 aws.String(r.emailClaims),
				Key:                       strKey(fieldEmail, d.Email),
				ConditionExpression:       aws.String("#h = :owner"),
				ExpressionAttributeNames:  map[string]string{"#h": fieldHandle},
				ExpressionAttributeValues: map[string]types.AttributeValue{":owner": strValue(d.Handle)},
			}})
			onFail = append(onFail, domain.ErrSignupConflict)
		}
	}
	return items, onFail, nil
}

// cancellationError maps the first failed condition of a cancelled signup
// transaction to its domain error. Anything else is a lost race.
func cancellationError(reasons []types.CancellationReason, onFail []error) error {
	for i, reason := range reasons {
		if aws.ToString(reason.Code) != "ConditionalCheckFailed" {
			continue
		}
		if i < len(onFail) {
			return fmt.Errorf("create account: %w", onFail[i])
		}
	}
	return fmt.Errorf("create account: %w", domain.ErrSignupConflict)
}

// MarkVerified flips is_verified only while the stored code is still the one
// the caller checked. The code itself is kept. A failed condition is
// reported as ErrCodeMismatch and the caller decides by re-reading.
func (r *AccountRepo) MarkVerified(ctx context.Context, handle, code string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldIsVerified: true,
		fieldUpdatedAt:  r.now(),
	})
	if err != nil {
		return err
	}
	ue.Names["#h"] = fieldHandle
	ue.Names["#c"] = fieldVerificationCode
	ue.Names["#v"] = fieldIsVerified
	ue.Values[":code"] = strValue(code)
	ue.Values[":false"] = boolValue(false)

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.accounts),
		Key:                       strKey(fieldHandle, handle),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#h) AND #c = :code AND #v = :false"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if _, failed := isConditionFailed(err); failed {
		return fmt.Errorf("mark verified: %w", domain.ErrCodeMismatch)
	}
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

// ReissueCode replaces the pending code and its expiry. It reports false
// without writing when the account is already verified.
func (r *AccountRepo) ReissueCode(ctx context.Context, handle string, code domain.PendingCode) (bool, error) {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldVerificationCode:   code.Code,
		fieldVerificationExpiry: attributevalue.UnixTime(code.ExpiresAt),
		fieldUpdatedAt:          r.now(),
	})
	if err != nil {
		return false, err
	}
	ue.Names["#h"] = fieldHandle
	ue.Names["#v"] = fieldIsVerified
	ue.Values[":false"] = boolValue(false)

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.accounts),
		Key:                                 strKey(fieldHandle, handle),
		UpdateExpression:                    aws.String(ue.Expr),
		ConditionExpression:                 aws.String("attribute_exists(#h) AND #v = :false"),
		ExpressionAttributeNames:            ue.Names,
		ExpressionAttributeValues:           ue.Values,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if old, failed := isConditionFailed(err); failed {
		if old == nil {
			return false, fmt.Errorf("reissue code: %w", domain.ErrAccountNotFound)
		}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reissue code: %w", err)
	}
	return true, nil
}

func (r *AccountRepo) SetAcceptingMessages(ctx context.Context, handle string, flag bool) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldIsAcceptingMessages: flag,
		fieldUpdatedAt:           r.now(),
	})
	if err != nil {
		return err
	}
	ue.Names["#h"] = fieldHandle

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.accounts),
		Key:                       strKey(fieldHandle, handle),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#h)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if _, failed := isConditionFailed(err); failed {
		return fmt.Errorf("set accepting messages: %w", domain.ErrAccountNotFound)
	}
	if err != nil {
		return fmt.Errorf("set accepting messages: %w", err)
	}
	return nil
}

// AppendMessage appends to the inbox in a single update guarded by the
// acceptance flag, so a concurrent toggle can never let a message through.
func (r *AccountRepo) AppendMessage(ctx context.Context, handle string, msg domain.Message) error {
	newList, err := attributevalue.Marshal([]domain.Message{msg})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	now, err := attributevalue.Marshal(r.now())
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.accounts),
		Key:                 strKey(fieldHandle, handle),
		UpdateExpression:    aws.String("SET #m = list_append(if_not_exists(#m, :empty), :new), #u = :now"),
		ConditionExpression: aws.String("attribute_exists(#h) AND #a = :true"),
		ExpressionAttributeNames: map[string]string{
			"#m": fieldMessages,
			"#u": fieldUpdatedAt,
			"#h": fieldHandle,
			"#a": fieldIsAcceptingMessages,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":new":   newList,
			":now":   now,
			":true":  boolValue(true),
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if old, failed := isConditionFailed(err); failed {
		if old == nil {
			return fmt.Errorf("append message: %w", domain.ErrRecipientNotFound)
		}
		return fmt.Errorf("append message: %w", domain.ErrMessagesClosed)
	}
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// RemoveMessage deletes one message by id. The remove is conditioned on the
// id still sitting at the index that was read; if another writer moved it,
// the inbox is re-read and the remove retried.
func (r *AccountRepo) RemoveMessage(ctx context.Context, handle, messageID string) error {
	for attempt := 0; attempt < maxRemoveAttempts; attempt++ {
		a, err := r.GetByHandle(ctx, handle)
		if err != nil {
			return err
		}
		idx := a.IndexOfMessage(messageID)
		if idx < 0 {
			return fmt.Errorf("remove message %s: %w", messageID, domain.ErrMessageNotFound)
		}
		_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:           aws.String(r.accounts),
			Key:                 strKey(fieldHandle, handle),
			UpdateExpression:    aws.String(fmt.Sprintf("REMOVE #m[%d]", idx)),
			ConditionExpression: aws.String(fmt.Sprintf("#m[%d].#id = :id", idx)),
			ExpressionAttributeNames: map[string]string{
				"#m":  fieldMessages,
				"#id": fieldMessageID,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":id": strValue(messageID),
			},
		})
		if _, failed := isConditionFailed(err); failed {
			continue
		}
		if err != nil {
			return fmt.Errorf("remove message: %w", err)
		}
		return nil
	}
	return fmt.Errorf("remove message %s: inbox kept changing after %d attempts", messageID, maxRemoveAttempts)
}
