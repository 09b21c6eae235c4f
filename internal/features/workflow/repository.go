package workflow

import (
	"context"
	"time"

	"go-caseflow/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type WorkflowRepository interface {
	Create(ctx context.Context, w *Workflow) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Workflow, error)
	FindActiveByFormID(ctx context.Context, formID primitive.ObjectID) (*Workflow, error)
	List(ctx context.Context) ([]Workflow, error)
	Update(ctx context.Context, w *Workflow) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	CreateTask(ctx context.Context, t *Task) error
	FindTaskByID(ctx context.Context, id primitive.ObjectID) (*Task, error)
	FindTaskByIndex(ctx context.Context, workflowID primitive.ObjectID, index int) (*Task, error)
	ListTasks(ctx context.Context, workflowID primitive.ObjectID) ([]Task, error)
	UpdateTask(ctx context.Context, t *Task) error
	DeleteTask(ctx context.Context, id primitive.ObjectID) error

	CreateDecisionPoint(ctx context.Context, dp *DecisionPoint) error
	FindDecisionPointByID(ctx context.Context, id primitive.ObjectID) (*DecisionPoint, error)
	ListDecisionPoints(ctx context.Context, taskID primitive.ObjectID) ([]DecisionPoint, error)
	UpdateDecisionPoint(ctx context.Context, dp *DecisionPoint) error
	DeleteDecisionPoint(ctx context.Context, id primitive.ObjectID) error

	CreateInstance(ctx context.Context, wi *WorkflowInstance) error
	FindInstanceByID(ctx context.Context, id primitive.ObjectID) (*WorkflowInstance, error)
	DeactivateInstance(ctx context.Context, id primitive.ObjectID) error

	CreateTaskInstances(ctx context.Context, instances []TaskInstance) error
	FindTaskInstanceByID(ctx context.Context, id primitive.ObjectID) (*TaskInstance, error)
	FindTaskInstancesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]TaskInstance, error)
	ListTaskInstancesByWorkflowInstance(ctx context.Context, workflowInstanceID primitive.ObjectID) ([]TaskInstance, error)
	UpdateTaskInstance(ctx context.Context, ti *TaskInstance) error
	DeactivateTaskInstances(ctx context.Context, ids []primitive.ObjectID) error
	FindStaleActiveInstances(ctx context.Context, before primitive.DateTime) ([]TaskInstance, error)

	EnsureIndexes(ctx context.Context) error
}

type WorkflowRepositoryImpl struct {
	workflows      *mongo.Collection
	tasks          *mongo.Collection
	decisionPoints *mongo.Collection
	instances      *mongo.Collection
	taskInstances  *mongo.Collection
}

func NewWorkflowRepository(mongodb *database.MongodbDB) WorkflowRepository {
	return &WorkflowRepositoryImpl{
		workflows:      mongodb.DB.Collection("workflows"),
		tasks:          mongodb.DB.Collection("workflow_tasks"),
		decisionPoints: mongodb.DB.Collection("decision_points"),
		instances:      mongodb.DB.Collection("workflow_instances"),
		taskInstances:  mongodb.DB.Collection("task_instances"),
	}
}

func (r *WorkflowRepositoryImpl) Create(ctx context.Context, w *Workflow) error {
	_, err := r.workflows.InsertOne(ctx, w)
	return err
}

func (r *WorkflowRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Workflow, error) {
	var w Workflow
	if err := r.workflows.FindOne(ctx, bson.M{"_id": id}).Decode(&w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WorkflowRepositoryImpl) FindActiveByFormID(ctx context.Context, formID primitive.ObjectID) (*Workflow, error) {
	var w Workflow
	if err := r.workflows.FindOne(ctx, bson.M{"form_id": formID, "active": true}).Decode(&w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WorkflowRepositoryImpl) List(ctx context.Context) ([]Workflow, error) {
	cursor, err := r.workflows.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var workflows []Workflow
	if err := cursor.All(ctx, &workflows); err != nil {
		return nil, err
	}
	return workflows, nil
}

func (r *WorkflowRepositoryImpl) Update(ctx context.Context, w *Workflow) error {
	_, err := r.workflows.ReplaceOne(ctx, bson.M{"_id": w.ID}, w)
	return err
}

func (r *WorkflowRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	tasks, err := r.ListTasks(ctx, id)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if _, err := r.decisionPoints.DeleteMany(ctx, bson.M{"task_id": t.ID}); err != nil {
			return err
		}
	}
	if _, err := r.tasks.DeleteMany(ctx, bson.M{"workflow_id": id}); err != nil {
		return err
	}
	_, err = r.workflows.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *WorkflowRepositoryImpl) CreateTask(ctx context.Context, t *Task) error {
	_, err := r.tasks.InsertOne(ctx, t)
	return err
}

func (r *WorkflowRepositoryImpl) FindTaskByID(ctx context.Context, id primitive.ObjectID) (*Task, error) {
	var t Task
	if err := r.tasks.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *WorkflowRepositoryImpl) FindTaskByIndex(ctx context.Context, workflowID primitive.ObjectID, index int) (*Task, error) {
	var t Task
	filter := bson.M{"workflow_id": workflowID, "index": index}
	if err := r.tasks.FindOne(ctx, filter).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *WorkflowRepositoryImpl) ListTasks(ctx context.Context, workflowID primitive.ObjectID) ([]Task, error) {
	cursor, err := r.tasks.Find(ctx, bson.M{"workflow_id": workflowID},
		options.Find().SetSort(bson.D{{Key: "index", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *WorkflowRepositoryImpl) UpdateTask(ctx context.Context, t *Task) error {
	_, err := r.tasks.ReplaceOne(ctx, bson.M{"_id": t.ID}, t)
	return err
}

func (r *WorkflowRepositoryImpl) DeleteTask(ctx context.Context, id primitive.ObjectID) error {
	if _, err := r.decisionPoints.DeleteMany(ctx, bson.M{"task_id": id}); err != nil {
		return err
	}
	_, err := r.tasks.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *WorkflowRepositoryImpl) CreateDecisionPoint(ctx context.Context, dp *DecisionPoint) error {
	_, err := r.decisionPoints.InsertOne(ctx, dp)
	return err
}

func (r *WorkflowRepositoryImpl) FindDecisionPointByID(ctx context.Context, id primitive.ObjectID) (*DecisionPoint, error) {
	var dp DecisionPoint
	if err := r.decisionPoints.FindOne(ctx, bson.M{"_id": id}).Decode(&dp); err != nil {
		return nil, err
	}
	return &dp, nil
}

// ListDecisionPoints returns a task's decision points in ascending
// priority order; the executor depends on that ordering.
func (r *WorkflowRepositoryImpl) ListDecisionPoints(ctx context.Context, taskID primitive.ObjectID) ([]DecisionPoint, error) {
	cursor, err := r.decisionPoints.Find(ctx, bson.M{"task_id": taskID},
		options.Find().SetSort(bson.D{{Key: "priority", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var points []DecisionPoint
	if err := cursor.All(ctx, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (r *WorkflowRepositoryImpl) UpdateDecisionPoint(ctx context.Context, dp *DecisionPoint) error {
	_, err := r.decisionPoints.ReplaceOne(ctx, bson.M{"_id": dp.ID}, dp)
	return err
}

func (r *WorkflowRepositoryImpl) DeleteDecisionPoint(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.decisionPoints.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *WorkflowRepositoryImpl) CreateInstance(ctx context.Context, wi *WorkflowInstance) error {
	_, err := r.instances.InsertOne(ctx, wi)
	return err
}

func (r *WorkflowRepositoryImpl) FindInstanceByID(ctx context.Context, id primitive.ObjectID) (*WorkflowInstance, error) {
	var wi WorkflowInstance
	if err := r.instances.FindOne(ctx, bson.M{"_id": id}).Decode(&wi); err != nil {
		return nil, err
	}
	return &wi, nil
}

func (r *WorkflowRepositoryImpl) DeactivateInstance(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.instances.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"active": false, "updated_at": primitive.NewDateTimeFromTime(nowUTC())}})
	return err
}

func (r *WorkflowRepositoryImpl) CreateTaskInstances(ctx context.Context, instances []TaskInstance) error {
	if len(instances) == 0 {
		return nil
	}
	docs := make([]interface{}, len(instances))
	for i := range instances {
		docs[i] = instances[i]
	}
	_, err := r.taskInstances.InsertMany(ctx, docs)
	return err
}

func (r *WorkflowRepositoryImpl) FindTaskInstanceByID(ctx context.Context, id primitive.ObjectID) (*TaskInstance, error) {
	var ti TaskInstance
	if err := r.taskInstances.FindOne(ctx, bson.M{"_id": id}).Decode(&ti); err != nil {
		return nil, err
	}
	return &ti, nil
}

func (r *WorkflowRepositoryImpl) FindTaskInstancesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]TaskInstance, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := r.taskInstances.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var instances []TaskInstance
	if err := cursor.All(ctx, &instances); err != nil {
		return nil, err
	}
	return instances, nil
}

// ListTaskInstancesByWorkflowInstance returns every instance a workflow
// instance ever created, oldest first. This is the case's full step
// history, not just the current working set.
func (r *WorkflowRepositoryImpl) ListTaskInstancesByWorkflowInstance(ctx context.Context, workflowInstanceID primitive.ObjectID) ([]TaskInstance, error) {
	cursor, err := r.taskInstances.Find(ctx, bson.M{"workflow_instance_id": workflowInstanceID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var instances []TaskInstance
	if err := cursor.All(ctx, &instances); err != nil {
		return nil, err
	}
	return instances, nil
}

func (r *WorkflowRepositoryImpl) UpdateTaskInstance(ctx context.Context, ti *TaskInstance) error {
	_, err := r.taskInstances.ReplaceOne(ctx, bson.M{"_id": ti.ID}, ti)
	return err
}

func (r *WorkflowRepositoryImpl) DeactivateTaskInstances(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.taskInstances.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}, "active": true},
		bson.M{"$set": bson.M{"active": false, "updated_at": primitive.NewDateTimeFromTime(nowUTC())}})
	return err
}

func (r *WorkflowRepositoryImpl) FindStaleActiveInstances(ctx context.Context, before primitive.DateTime) ([]TaskInstance, error) {
	cursor, err := r.taskInstances.Find(ctx, bson.M{"active": true, "created_at": bson.M{"$lt": before}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var instances []TaskInstance
	if err := cursor.All(ctx, &instances); err != nil {
		return nil, err
	}
	return instances, nil
}

func nowUTC() time.Time { return time.Now().UTC() }

func (r *WorkflowRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.tasks.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "workflow_id", Value: 1}, {Key: "index", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "workflow_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return err
	}
	_, err = r.decisionPoints.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "task_id", Value: 1}, {Key: "priority", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "task_id", Value: 1}, {Key: "label", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return err
	}
	_, err = r.taskInstances.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "active", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return err
}
